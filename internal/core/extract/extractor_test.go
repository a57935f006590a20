package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainRoundTrip(t *testing.T) {
	e := NewExtractor()
	content := []byte("Module 1: Introduction\nWelcome to the course.")
	got, err := e.Extract(content, "https://bucket.s3.amazonaws.com/kb/notes.txt", "")
	require.NoError(t, err)
	assert.Equal(t, string(content), got)
}

func TestExtractPlainDeclaredTypeWins(t *testing.T) {
	e := NewExtractor()
	// URL has no useful extension; declared type decides.
	got, err := e.Extract([]byte("hello"), "https://example.com/download?id=42", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestExtractPlainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte("hello\x80world"), "notes.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "hello�world", got)
}

func TestExtractDocxUnsupported(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract([]byte("PK\x03\x04"), "https://example.com/syllabus.docx", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractUnknownTypeUnsupported(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract([]byte("data"), "https://example.com/file.bin", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractCorruptPDF(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract([]byte("%PDF-1.4 definitely not a real pdf"), "doc.pdf", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestResolveType(t *testing.T) {
	assert.Equal(t, mimePlainText, resolveType("A/B/Notes.TXT", ""))
	assert.Equal(t, mimePDF, resolveType("slides.pdf", ""))
	assert.Equal(t, mimeDocx, resolveType("paper.docx", ""))
	assert.Equal(t, "", resolveType("archive.zip", ""))
	assert.Equal(t, mimePDF, resolveType("whatever.txt", mimePDF))
	// stored short forms resolve the same as MIME types
	assert.Equal(t, mimePlainText, resolveType("", "txt"))
	assert.Equal(t, mimePDF, resolveType("", "pdf"))
	assert.Equal(t, mimeDocx, resolveType("", "docx"))
}
