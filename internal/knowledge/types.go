package knowledge

// Passage is a retrieved chunk with its similarity score and the metadata
// stored at index time. Passages are ephemeral: produced per query and
// consumed within one request.
type Passage struct {
	ID       string
	Text     string
	Score    float32
	Metadata map[string]any
}
