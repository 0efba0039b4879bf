package knowledge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRetrieverStore returns canned results and records the requested k.
type fakeRetrieverStore struct {
	passages []Passage
	err      error

	lastQuery string
	lastK     int
}

func (f *fakeRetrieverStore) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	f.lastQuery = query
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

func TestRetrieve_ReturnsPassages(t *testing.T) {
	store := &fakeRetrieverStore{passages: []Passage{
		{ID: "passage_a", Text: "Go backend work", Score: 0.91},
		{ID: "passage_b", Text: "Kubernetes migration", Score: 0.84},
	}}
	r := NewRetriever(store, 6, nil)

	got, err := r.Retrieve(context.Background(), "what did you build?")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "passage_a", got[0].ID)
	assert.Equal(t, 6, store.lastK)
	assert.Equal(t, "what did you build?", store.lastQuery)
}

func TestRetrieve_EmptyResultIsNotAnError(t *testing.T) {
	store := &fakeRetrieverStore{}
	r := NewRetriever(store, 6, nil)

	got, err := r.Retrieve(context.Background(), "unrelated topic")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieve_UnavailableStore(t *testing.T) {
	cause := fmt.Errorf("%w: connection refused", ErrStoreUnavailable)
	store := &fakeRetrieverStore{err: cause}
	r := NewRetriever(store, 6, nil)

	got, err := r.Retrieve(context.Background(), "anything")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable, "unreachable index is never an empty result")
	assert.ErrorIs(t, err, ErrStoreUnavailable, "cause preserved in the chain")
}

func TestRetrieve_TimeoutPassesThrough(t *testing.T) {
	cause := fmt.Errorf("%w: embedding query: %w", ErrUpstreamTimeout, context.DeadlineExceeded)
	store := &fakeRetrieverStore{err: cause}
	r := NewRetriever(store, 6, nil)

	_, err := r.Retrieve(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
	assert.False(t, errors.Is(err, ErrRetrievalUnavailable), "timeouts keep their own identity")
}

func TestNewRetriever_DefaultTopK(t *testing.T) {
	store := &fakeRetrieverStore{}
	r := NewRetriever(store, 0, nil)

	_, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 6, store.lastK)
}
