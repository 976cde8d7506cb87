package text

import (
	"strings"
)

const (
	// DefaultChunkSize is the window length in characters.
	DefaultChunkSize = 1000

	// DefaultOverlap is how many trailing characters of a chunk are repeated
	// at the start of the next one.
	DefaultOverlap = 150

	// sentenceLookback bounds how far back from the window edge a sentence
	// terminator is searched for.
	sentenceLookback = 100
)

type chunker struct {
	size    int
	overlap int
}

// Option configures Chunk.
type Option func(*chunker)

// WithChunkSize sets the window length in characters.
func WithChunkSize(size int) Option {
	return func(c *chunker) {
		c.size = size
	}
}

// WithOverlap sets the number of characters shared by neighbouring chunks.
func WithOverlap(overlap int) Option {
	return func(c *chunker) {
		c.overlap = overlap
	}
}

type span struct {
	start, end int
}

// Chunk splits text into overlapping passages. Cuts prefer the last
// sentence terminator (. ! ? or newline) within the final 100 characters of
// the window, then the nearest preceding space, then the window edge.
// Passages are trimmed and blank ones dropped, so the result may be empty.
func Chunk(text string, opts ...Option) []string {
	c := chunker{size: DefaultChunkSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(&c)
	}
	c.normalize()

	runes := []rune(text)
	var chunks []string
	for _, w := range c.windows(runes) {
		passage := strings.TrimSpace(string(runes[w.start:w.end]))
		if passage != "" {
			chunks = append(chunks, passage)
		}
	}
	return chunks
}

func (c *chunker) normalize() {
	if c.size < 1 {
		c.size = 1
	}
	if c.overlap < 0 {
		c.overlap = 0
	}
	if c.overlap >= c.size {
		c.overlap = c.size - 1
	}
}

// windows returns the untrimmed rune ranges of every chunk. Consecutive
// ranges touch or overlap, and every start is strictly greater than the
// previous one.
func (c *chunker) windows(runes []rune) []span {
	n := len(runes)
	var out []span

	start := 0
	for start < n {
		end := min(start+c.size, n)
		if end < n {
			end = c.boundary(runes, start, end)
		}
		out = append(out, span{start: start, end: end})

		if end >= n {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// boundary moves end back to a sentence or word boundary inside
// (start, end]. It never returns a value <= start.
func (c *chunker) boundary(runes []rune, start, end int) int {
	floor := max(end-sentenceLookback, start)
	for i := end; i > floor; i-- {
		switch runes[i-1] {
		case '.', '!', '?', '\n':
			return i
		}
	}

	for i := end; i > start; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return end
}
