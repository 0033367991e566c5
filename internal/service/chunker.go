package service

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits extracted document text into bounded-size segments suitable
// for embedding. Overlap is off by default but configurable.
type Chunker struct {
	Size    int // max chunk length in runes
	Overlap int // runes carried over from the previous chunk
}

// NewChunker creates a chunker with sane bounds applied.
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}
	return Chunker{Size: size, Overlap: overlap}
}

// Chunk splits ordered text blocks into chunks of at most Size runes,
// preserving reading order. Whitespace-only blocks are skipped. An input with
// no usable text yields zero chunks.
func (c Chunker) Chunk(blocks []string) []string {
	var chunks []string
	for _, block := range blocks {
		block = normalizeWhitespace(block)
		if block == "" {
			continue
		}
		chunks = append(chunks, c.chunkBlock(block)...)
	}
	return chunks
}

// chunkBlock packs whole sentences into chunks up to the size limit.
// Sentences longer than the limit are hard-split.
func (c Chunker) chunkBlock(text string) []string {
	var chunks []string
	current := ""

	for _, sentence := range splitSentences(text) {
		for _, piece := range hardSplit(sentence, c.Size) {
			switch {
			case current == "":
				current = piece
			case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(piece) > c.Size:
				chunks = append(chunks, current)
				current = c.withOverlap(current, piece)
			default:
				current += " " + piece
			}
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// withOverlap starts a new chunk from a piece, prefixed with the tail of the
// previous chunk when overlap is enabled and the result still fits.
func (c Chunker) withOverlap(prev, piece string) string {
	if c.Overlap == 0 {
		return piece
	}

	tail := lastRunes(prev, c.Overlap)
	// start the carried text at a word boundary
	if idx := strings.Index(tail, " "); idx >= 0 {
		tail = tail[idx+1:]
	}
	if tail == "" {
		return piece
	}

	combined := tail + " " + piece
	if utf8.RuneCountInString(combined) > c.Size {
		return piece
	}
	return combined
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// splitSentences splits on sentence terminators, keeping the terminator with
// the sentence. Decimal points do not terminate.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if !isSentenceEnd(r) {
			continue
		}
		if r == '.' && i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9' {
			continue
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// hardSplit cuts text into rune-bounded pieces; most sentences fit in one.
func hardSplit(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var pieces []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}

// lastRunes returns the trailing n runes of s.
func lastRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
