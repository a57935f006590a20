package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF parses the buffer into pages, joins each page's positioned text
// runs with single spaces, joins pages with a blank line and trims the result.
// The parser panics on some malformed inputs, so failures of either kind are
// folded into ErrExtractionFailed.
func extractPDF(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = extractionFailed(fmt.Errorf("pdf parse: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", extractionFailed(fmt.Errorf("open PDF: %w", err))
	}

	var pages []string
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		var runs []string
		for _, t := range page.Content().Text {
			if t.S == "" {
				continue
			}
			runs = append(runs, t.S)
		}
		pages = append(pages, strings.Join(runs, " "))
	}
	return strings.TrimSpace(strings.Join(pages, "\n\n")), nil
}
