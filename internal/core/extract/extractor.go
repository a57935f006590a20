// Package extract converts raw knowledge-base document buffers into plain text.
package extract

import (
	"errors"
	"fmt"
	"strings"
)

const (
	mimePlainText = "text/plain"
	mimePDF       = "application/pdf"
	mimeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupportedFormat is returned for any document type the extractor cannot
// handle. DOCX is accepted at upload time but deliberately remains unsupported
// here, matching the upload contract.
var ErrUnsupportedFormat = errors.New("unsupported knowledge base file type; supported: .txt, .pdf")

// ErrExtractionFailed wraps parse failures inside a supported format.
var ErrExtractionFailed = errors.New("failed to extract text")

// Extractor extracts plain text from document buffers. It is stateless; Extract
// is a pure function of its inputs.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract resolves the effective MIME type (declaredType wins, else the source
// URL's extension) and extracts accordingly.
func (e *Extractor) Extract(content []byte, sourceURL, declaredType string) (string, error) {
	switch resolveType(sourceURL, declaredType) {
	case mimePlainText:
		return extractPlain(content)
	case mimePDF:
		return extractPDF(content)
	default:
		return "", ErrUnsupportedFormat
	}
}

// resolveType prefers the declared type, accepting either a MIME type or the
// stored short form (txt, pdf, docx); otherwise it infers from the source
// URL's file extension.
func resolveType(sourceURL, declaredType string) string {
	switch strings.ToLower(declaredType) {
	case "txt", mimePlainText:
		return mimePlainText
	case "pdf", mimePDF:
		return mimePDF
	case "doc", "docx", "application/msword", mimeDocx:
		return mimeDocx
	}
	u := strings.ToLower(sourceURL)
	switch {
	case strings.HasSuffix(u, ".txt"):
		return mimePlainText
	case strings.HasSuffix(u, ".pdf"):
		return mimePDF
	case strings.HasSuffix(u, ".docx"):
		return mimeDocx
	default:
		return ""
	}
}

func extractionFailed(err error) error {
	return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
}
