package statement

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/secondlook/secondlook/internal/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Receipt No,Completion Time,Details,Transaction Status,Paid In,Withdrawn,Balance\n" +
	"QAB1,2024-01-02 10:00:00,Customer Payment,Completed,1500,,2500\n" +
	"QAB2,2024-01-03 11:00:00,Pay Bill,Completed,,300,2200\n"

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5 MB"},
		{3 * 1024 * 1024 * 1024, "3 GB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.in))
	}
}

func TestOpen_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	f, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, "statement.csv", f.Name)
	assert.Equal(t, "text/csv", f.MIMEType)
	assert.EqualValues(t, len(sampleCSV), f.Size)
	assert.True(t, form.Accepted(f))
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestInspect_CSV(t *testing.T) {
	p, err := Inspect(form.NewFile("statement.csv", "text/csv", []byte(sampleCSV)))
	require.NoError(t, err)

	assert.Equal(t, KindCSV, p.Kind)
	assert.Equal(t, 2, p.Rows)
	assert.True(t, p.Accepted)
}

func TestInspect_BrokenPDF(t *testing.T) {
	p, err := Inspect(form.NewFile("statement.pdf", "application/pdf", []byte("not really a pdf")))

	assert.Error(t, err)
	assert.Equal(t, KindPDF, p.Kind)
	assert.Equal(t, "16 Bytes", p.SizeText)
}

func TestInspect_Other(t *testing.T) {
	p, err := Inspect(form.NewFile("notes.txt", "text/plain", []byte("hello")))
	require.NoError(t, err)

	assert.Equal(t, KindOther, p.Kind)
	assert.False(t, p.Accepted)
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectMIME("x.bin", []byte("%PDF-1.7\n%âãÏÓ\n")))
	assert.Equal(t, "text/csv", DetectMIME("x.csv", []byte("a,b\n1,2\n")))
}
