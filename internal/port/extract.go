package port

import "io"

// TextExtractor pulls readable text out of an uploaded document.
// It returns the document's text blocks in reading order; an empty slice
// means the document is unreadable or scanned (no error).
type TextExtractor interface {
	ExtractText(r io.Reader) ([]string, error)
}
