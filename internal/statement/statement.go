// Package statement loads statement files from disk and describes them for
// the upload preview.
package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/secondlook/secondlook/internal/form"
)

// Kind is the statement format as far as the client can tell.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindCSV   Kind = "csv"
	KindOther Kind = "other"
)

// Preview is what the upload area shows for a selected file.
type Preview struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	SizeText string `json:"size_text"`
	Kind     Kind   `json:"kind"`
	Accepted bool   `json:"accepted"`
	Pages    int    `json:"pages,omitempty"`
	Rows     int    `json:"rows,omitempty"`
}

// Open reads the file at path and sniffs its MIME type.
func Open(path string) (form.File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return form.File{}, fmt.Errorf("Open: reading %q: %w", path, err)
	}
	name := filepath.Base(path)
	return form.NewFile(name, DetectMIME(name, content), content), nil
}

// DetectMIME sniffs content. Short CSVs often sniff as plain text, so a .csv
// extension upgrades text/plain to text/csv.
func DetectMIME(name string, content []byte) string {
	m := mimetype.Detect(content)
	ext := filepath.Ext(name)
	if m.Is("text/plain") && (ext == ".csv" || ext == ".CSV") {
		return "text/csv"
	}
	if m.Is("application/pdf") {
		return "application/pdf"
	}
	if m.Is("text/csv") {
		return "text/csv"
	}
	return m.String()
}

// Inspect builds the preview for f. A PDF that cannot be parsed or a CSV
// that cannot be read is reported as an error alongside a partial preview.
func Inspect(f form.File) (Preview, error) {
	p := Preview{
		Name:     f.Name,
		MIMEType: f.MIMEType,
		Size:     f.Size,
		SizeText: FormatSize(f.Size),
		Kind:     kindOf(f),
		Accepted: form.Accepted(f),
	}

	switch p.Kind {
	case KindPDF:
		pages, err := countPages(f.Content)
		if err != nil {
			return p, fmt.Errorf("Inspect: %s: %w", f.Name, err)
		}
		p.Pages = pages
	case KindCSV:
		rows, err := countRows(f.Content)
		if err != nil {
			return p, fmt.Errorf("Inspect: %s: %w", f.Name, err)
		}
		p.Rows = rows
	}
	return p, nil
}

func kindOf(f form.File) Kind {
	switch {
	case f.MIMEType == "application/pdf" || f.Ext() == ".pdf":
		return KindPDF
	case form.Accepted(f):
		return KindCSV
	default:
		return KindOther
	}
}

func countPages(content []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("opening pdf: %w", err)
	}
	pages = r.NumPage()
	if pages == 0 {
		return 0, errors.New("PDF has no pages")
	}
	return pages, nil
}

// countRows counts data rows, excluding the header.
func countRows(content []byte) (int, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	n := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading csv: %w", err)
		}
		n++
	}
	if n > 0 {
		n--
	}
	return n, nil
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count with 1024-based units, e.g. "1.5 KB".
func FormatSize(size int64) string {
	if size <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(size)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(size) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
}
