// Package gcs archives accepted statements to a Cloud Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/form"
)

// UploadTimeout bounds a single statement upload.
const UploadTimeout = 2 * time.Minute

// Archiver writes statements to a bucket. It assumes Application Default
// Credentials are configured (gcloud auth application-default login).
type Archiver struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
	now    func() time.Time
}

// NewArchiver creates an archiver with its own storage client.
func NewArchiver(ctx context.Context, bucket string, log zerolog.Logger) (*Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewArchiver: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewArchiver: create storage client: %w", err)
	}
	return &Archiver{client: client, bucket: bucket, log: log, now: time.Now}, nil
}

// Close releases the storage client.
func (a *Archiver) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// Archive uploads f and returns its gs:// URI.
func (a *Archiver) Archive(ctx context.Context, f form.File) (string, error) {
	object := ObjectName(a.now(), uuid.NewString(), f.Name)

	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = f.MIMEType
	defer func() {
		// Ensure the writer is closed even on early returns
		_ = w.Close()
	}()

	if _, err := io.Copy(w, f.Reader()); err != nil {
		return "", fmt.Errorf("Archive: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalize upload: %w", err)
	}

	uri := URI(a.bucket, object)
	a.log.Debug().Str("uri", uri).Int64("size", f.Size).Msg("Statement archived")
	return uri, nil
}

// ObjectName lays statements out by upload day:
// statements/2006/01/02/<id>-<filename>.
func ObjectName(at time.Time, id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "statement"
	}
	return path.Join("statements", at.UTC().Format("2006/01/02"), id+"-"+name)
}

// URI formats a gs:// URI.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// ParseURI splits gs://bucket/object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI returns the original statement name from an archive URI,
// e.g. "gs://b/statements/2024/02/01/<uuid>-jan.pdf" → "jan.pdf".
func FilenameFromURI(uri string) string {
	_, object, err := ParseURI(uri)
	if err != nil {
		return ""
	}
	base := path.Base(object)
	// uuid is 36 characters, then the dash
	if len(base) > 37 && base[36] == '-' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}
