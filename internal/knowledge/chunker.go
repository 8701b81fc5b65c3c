package knowledge

import "strings"

// Default chunking parameters, matching the ingestion side of the
// knowledge base this index was built for.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 50
)

// separators are tried in order: paragraph breaks first, then lines,
// sentences, words, and finally raw characters.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits document text into overlapping chunks sized for the
// embedding model.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Non-positive size or overlap fall back
// to the package defaults.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into chunks of at most the configured size,
// preferring to cut at paragraph, line, and sentence boundaries.
// Consecutive chunks overlap by roughly the configured amount so that
// context spanning a cut is not lost. Blank-only fragments are dropped.
func (c *Chunker) Split(text string) []string {
	pieces := c.split(text, 0)

	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// split recursively divides text using the separator at depth, falling
// through to finer separators for fragments that are still too large.
func (c *Chunker) split(text string, depth int) []string {
	if len(text) <= c.size {
		return []string{text}
	}

	sep := separators[depth]
	if sep == "" {
		return c.hardSplit(text)
	}

	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		// Separator absent, try the next finer one.
		return c.split(text, depth+1)
	}

	var chunks []string
	var current strings.Builder
	for _, part := range parts {
		if current.Len() > 0 && current.Len()+len(part) > c.size {
			chunks = append(chunks, current.String())
			tail := overlapTail(current.String(), c.overlap)
			current.Reset()
			if len(tail)+len(part) <= c.size {
				current.WriteString(tail)
			}
		}
		if len(part) > c.size {
			// A single fragment exceeds the budget; flush and recurse.
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, c.split(part, depth+1)...)
			continue
		}
		current.WriteString(part)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// hardSplit cuts text at fixed offsets with overlap, the last resort when
// no separator fits within the budget.
func (c *Chunker) hardSplit(text string) []string {
	var chunks []string
	step := c.size - c.overlap
	for start := 0; start < len(text); start += step {
		end := min(start+c.size, len(text))
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}

// overlapTail returns the last n bytes of s, extended left to the nearest
// space so the overlap does not start mid-word.
func overlapTail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		if n <= 0 {
			return ""
		}
		return s
	}
	tail := s[len(s)-n:]
	if idx := strings.IndexByte(tail, ' '); idx > 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}
	return tail
}
