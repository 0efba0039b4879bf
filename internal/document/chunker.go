package document

import (
	"strings"
	"unicode/utf8"
)

// Chunk is a size-bounded slice of a source page, carrying the page's
// metadata plus its own index. Once indexed, the vector store is the
// system of record; chunks are not retained in memory.
type Chunk struct {
	Text string

	// OverlapWithPrevious is the number of characters at the start of
	// Text that were also emitted at the end of the previous chunk of the
	// same page.
	OverlapWithPrevious int

	Metadata map[string]any
}

// splitSeparators is the structural boundary hierarchy, most to least
// preferred: paragraph, line, sentence, word. Text that cannot be split at
// any of these is cut at character level.
var splitSeparators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits extracted text recursively at structural boundaries so
// that no chunk exceeds Size and consecutive chunks share up to Overlap
// trailing/leading characters. Splitting is deterministic: the same input
// and configuration always produce the same chunk sequence.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Non-positive size or negative overlap fall
// back to the package defaults (500/100 character-equivalent units).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 100
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks every document in order. Output ordering matches the input
// document/page order; within a page, chunk order follows text order.
// Each chunk inherits its page's metadata plus a "chunk_index" field.
func (c *Chunker) Split(docs []RawDocument) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		pieces := c.splitText(doc.Text)
		for i, p := range pieces {
			meta := make(map[string]any, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta["chunk_index"] = i

			chunks = append(chunks, Chunk{
				Text:                p.text,
				OverlapWithPrevious: p.overlap,
				Metadata:            meta,
			})
		}
	}
	return chunks
}

// piece is an intermediate chunk before metadata attachment.
type piece struct {
	text    string
	overlap int
}

// splitText produces the chunk texts for one page.
func (c *Chunker) splitText(text string) []piece {
	frags := c.fragments(text, splitSeparators)
	return c.mergeFragments(frags)
}

// fragments recursively splits text into fragments no longer than the
// chunk size, descending through the separator hierarchy. Separators are
// kept attached to the preceding fragment so that rejoining fragments
// reconstructs the original text.
func (c *Chunker) fragments(text string, seps []string) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.size {
		return []string{text}
	}
	if len(seps) == 0 {
		return c.hardCut(text)
	}

	sep, rest := seps[0], seps[1:]
	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		// Separator absent, try the next boundary level.
		return c.fragments(text, rest)
	}

	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) <= c.size {
			out = append(out, p)
			continue
		}
		out = append(out, c.fragments(p, rest)...)
	}
	return out
}

// hardCut slices text at character level, the last-resort boundary.
func (c *Chunker) hardCut(text string) []string {
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+c.size-1)/c.size)
	for start := 0; start < len(runes); start += c.size {
		end := min(start+c.size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

// mergeFragments packs consecutive fragments into chunks of at most the
// configured size. When a chunk is emitted, a suffix of its fragments
// totalling at most the configured overlap is carried into the next chunk
// to preserve local context across the boundary.
func (c *Chunker) mergeFragments(frags []string) []piece {
	var (
		out     []piece
		window  []string
		winLen  int
		overlap int
	)

	emit := func() {
		text := strings.TrimSpace(strings.Join(window, ""))
		if text != "" {
			out = append(out, piece{text: text, overlap: overlap})
		}
	}

	for _, f := range frags {
		fl := utf8.RuneCountInString(f)
		if winLen > 0 && winLen+fl > c.size {
			emit()

			// Retain trailing fragments up to the overlap budget.
			keep, kept := 0, 0
			for i := len(window) - 1; i >= 0; i-- {
				l := utf8.RuneCountInString(window[i])
				if kept+l > c.overlap {
					break
				}
				kept += l
				keep++
			}
			window = append([]string(nil), window[len(window)-keep:]...)
			winLen = kept
			overlap = kept

			// The retained overlap plus a large incoming fragment may
			// still exceed the size bound; shed from the front until the
			// fragment fits.
			for winLen+fl > c.size && len(window) > 0 {
				winLen -= utf8.RuneCountInString(window[0])
				window = window[1:]
				overlap = winLen
			}
		}
		window = append(window, f)
		winLen += fl
	}

	if winLen > 0 {
		emit()
	}
	return out
}
