package knowledge

import "errors"

// Sentinel errors for index operations. Callers distinguish conditions
// with errors.Is; wrapping preserves the underlying cause.
var (
	// ErrEmbedding indicates the embedding call failed for a batch or a
	// query. A failed batch is never partially written: the population run
	// aborts with this error instead of silently skipping the batch.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStoreUnavailable indicates the vector store could not be reached
	// at write time.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrRetrievalUnavailable indicates the backing index could not be
	// reached at query time. Distinct from an empty result, which is a
	// successful query with no matches.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrUpstreamTimeout indicates an external call exceeded its deadline.
	// Surfaced distinctly so callers can decide to retry.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)
