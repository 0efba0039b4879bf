package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvega/askme/internal/log"
)

// RetrieverStore is the search contract the retriever depends on.
// Satisfied by *Store.
type RetrieverStore interface {
	Search(ctx context.Context, query string, k int) ([]Passage, error)
}

// Retriever returns the top-k passages most similar to a query.
// It has no side effects and uses the same embedder as index time (the
// store owns the embedder, which guarantees this).
type Retriever struct {
	store  RetrieverStore
	topK   int
	logger log.Logger
}

// NewRetriever creates a Retriever. A non-positive topK falls back to 6:
// for a small curated corpus, recall matters more than precision.
func NewRetriever(store RetrieverStore, topK int, logger log.Logger) *Retriever {
	if topK <= 0 {
		topK = 6
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{store: store, topK: topK, logger: logger}
}

// Retrieve returns up to topK passages ordered by descending similarity.
//
// An unreachable index surfaces as ErrRetrievalUnavailable; it is never
// collapsed into an empty result. An empty result with a nil error means
// the query genuinely matched nothing.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	passages, err := r.store.Search(ctx, query, r.topK)
	if err != nil {
		if errors.Is(err, ErrUpstreamTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	r.logger.Debug("retrieved passages", "query_length", len(query), "count", len(passages))
	return passages, nil
}
