package form

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// File is one statement selected by the user, held in memory until it is
// submitted.
type File struct {
	Name     string
	MIMEType string
	Size     int64
	Content  []byte
}

// NewFile builds a File from raw bytes; Size is derived from the content.
func NewFile(name, mimeType string, content []byte) File {
	return File{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(content)),
		Content:  content,
	}
}

// Reader returns a fresh reader over the file content.
func (f File) Reader() io.Reader {
	return bytes.NewReader(f.Content)
}

// Ext returns the lower-cased extension including the dot.
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

var acceptedMIMETypes = map[string]bool{
	"application/pdf":          true,
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
}

var acceptedExtensions = map[string]bool{
	".pdf": true,
	".csv": true,
}

// Accepted reports whether f looks like a PDF or CSV statement, by MIME type
// or by extension.
func Accepted(f File) bool {
	mimeType := strings.ToLower(strings.TrimSpace(f.MIMEType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return acceptedMIMETypes[mimeType] || acceptedExtensions[f.Ext()]
}

// FilterAccepted keeps the files Accepted allows, preserving order.
func FilterAccepted(files []File) (accepted []File, rejected int) {
	for _, f := range files {
		if Accepted(f) {
			accepted = append(accepted, f)
		} else {
			rejected++
		}
	}
	return accepted, rejected
}
