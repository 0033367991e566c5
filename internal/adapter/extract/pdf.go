package extract

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dslipak/pdf"
)

// PDFExtractor implements port.TextExtractor for PDF documents.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractText returns one text block per page, in reading order.
// Scanned PDFs with no text layer yield an empty slice, not an error.
func (e *PDFExtractor) ExtractText(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var blocks []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single broken page should not abort the rest of the document.
			slog.Warn("pdf page extraction failed", "page", i, "error", err)
			continue
		}

		if strings.TrimSpace(text) == "" {
			continue
		}
		blocks = append(blocks, text)
	}

	return blocks, nil
}
