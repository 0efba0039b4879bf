package knowledge

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dvega/askme/internal/document"
)

// mockEmbedder implements ai.Embedder, returning one vector per input
// document.
type mockEmbedder struct {
	embedErr       error
	vector         []float32
	respSizeDelta  int // skew the embedding count to simulate a bad response
	callCount      int
	lastInputCount int
	lastOptions    any
	hadDeadline    bool
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	m.lastInputCount = len(req.Input)
	m.lastOptions = req.Options
	_, m.hadDeadline = ctx.Deadline()

	if m.embedErr != nil {
		return nil, m.embedErr
	}

	vec := m.vector
	if vec == nil {
		vec = []float32{0.1, 0.2, 0.3}
	}

	n := len(req.Input) + m.respSizeDelta
	embeddings := make([]*ai.Embedding, 0, n)
	for range n {
		embeddings = append(embeddings, &ai.Embedding{Embedding: vec})
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// fakeDB implements the DB contract with canned rows and call recording.
type fakeDB struct {
	execErr  error
	queryErr error
	rowErr   error
	rows     [][]any
	rowValue int64 // result for QueryRow (count queries)

	execSQL  string
	execArgs []any
	querySQL string
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.querySQL = sql
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{rows: f.rows}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &fakeRow{err: f.rowErr, value: f.rowValue}
}

type fakeRow struct {
	err   error
	value int64
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) > 0 {
		if p, ok := dest[0].(*int64); ok {
			*p = r.value
		}
	}
	return nil
}

type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *[]byte:
			*p = row[i].([]byte)
		case *float64:
			*p = row[i].(float64)
		}
	}
	return nil
}

func testChunk(i int) document.Chunk {
	return document.Chunk{
		Text:     "some passage text",
		Metadata: map[string]any{"source": "cv.pdf", "page": 1, "chunk_index": i},
	}
}

func TestStoreCount(t *testing.T) {
	db := &fakeDB{rowValue: 7}
	store := NewStore(db, &mockEmbedder{}, nil)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestStoreCount_Unavailable(t *testing.T) {
	db := &fakeDB{rowErr: context.DeadlineExceeded}
	store := NewStore(db, &mockEmbedder{}, nil)

	_, err := store.Count(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
}

func TestAddBatch_SingleEmbedCallAndUpsert(t *testing.T) {
	db := &fakeDB{}
	embedder := &mockEmbedder{}
	store := NewStore(db, embedder, nil)

	chunks := []document.Chunk{testChunk(0), testChunk(1), testChunk(2)}
	err := store.AddBatch(context.Background(), chunks)
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.callCount, "one embedding call per batch")
	assert.Equal(t, 3, embedder.lastInputCount)
	assert.Contains(t, db.execSQL, "ON CONFLICT (id) DO UPDATE")
	assert.Len(t, db.execArgs, 12, "four parameters per chunk")
}

// The passages table is vector(768) while gemini-embedding-001 returns
// 3072-dim vectors by default, so every embed request must carry an
// explicit output dimensionality matching the schema.
func TestEmbedRequests_TruncateToSchemaDimension(t *testing.T) {
	requireDimension := func(t *testing.T, options any) {
		t.Helper()
		cfg, ok := options.(*genai.EmbedContentConfig)
		require.True(t, ok, "embed request options must be an EmbedContentConfig, got %T", options)
		require.NotNil(t, cfg.OutputDimensionality)
		assert.EqualValues(t, VectorDimension, *cfg.OutputDimensionality)
	}

	t.Run("AddBatch", func(t *testing.T) {
		embedder := &mockEmbedder{}
		store := NewStore(&fakeDB{}, embedder, nil)

		require.NoError(t, store.AddBatch(context.Background(), []document.Chunk{testChunk(0)}))
		requireDimension(t, embedder.lastOptions)
	})

	t.Run("Search", func(t *testing.T) {
		embedder := &mockEmbedder{}
		store := NewStore(&fakeDB{}, embedder, nil)

		_, err := store.Search(context.Background(), "q", 3)
		require.NoError(t, err)
		requireDimension(t, embedder.lastOptions)
	})
}

func TestStoreCalls_CarryDeadline(t *testing.T) {
	embedder := &mockEmbedder{}
	store := NewStore(&fakeDB{}, embedder, nil)

	require.NoError(t, store.AddBatch(context.Background(), []document.Chunk{testChunk(0)}))
	assert.True(t, embedder.hadDeadline, "AddBatch must bound the embedding call")

	embedder.hadDeadline = false
	_, err := store.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.True(t, embedder.hadDeadline, "Search must bound the embedding call")
}

func TestAddBatch_EmptyIsNoOp(t *testing.T) {
	db := &fakeDB{}
	embedder := &mockEmbedder{}
	store := NewStore(db, embedder, nil)

	require.NoError(t, store.AddBatch(context.Background(), nil))
	assert.Zero(t, embedder.callCount)
	assert.Empty(t, db.execSQL)
}

func TestAddBatch_EmbeddingFailure(t *testing.T) {
	tests := []struct {
		name     string
		embedder *mockEmbedder
		wantErr  error
	}{
		{
			name:     "embedder error",
			embedder: &mockEmbedder{embedErr: assert.AnError},
			wantErr:  ErrEmbedding,
		},
		{
			name:     "deadline exceeded",
			embedder: &mockEmbedder{embedErr: context.DeadlineExceeded},
			wantErr:  ErrUpstreamTimeout,
		},
		{
			name:     "embedding count mismatch",
			embedder: &mockEmbedder{respSizeDelta: -1},
			wantErr:  ErrEmbedding,
		},
		{
			name:     "empty vector",
			embedder: &mockEmbedder{vector: []float32{}},
			wantErr:  ErrEmbedding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{}
			store := NewStore(db, tt.embedder, nil)

			err := store.AddBatch(context.Background(), []document.Chunk{testChunk(0), testChunk(1)})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, db.execSQL, "nothing written on a failed batch")
		})
	}
}

func TestAddBatch_UpsertFailure(t *testing.T) {
	db := &fakeDB{execErr: assert.AnError}
	store := NewStore(db, &mockEmbedder{}, nil)

	err := store.AddBatch(context.Background(), []document.Chunk{testChunk(0)})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestSearch_ReturnsScoredPassages(t *testing.T) {
	db := &fakeDB{rows: [][]any{
		{"passage_1", "worked on Go services", []byte(`{"source":"cv.pdf","page":2}`), 0.93},
		{"passage_2", "led a platform team", []byte(`{"source":"cv.pdf","page":3}`), 0.87},
	}}
	store := NewStore(db, &mockEmbedder{}, nil)

	got, err := store.Search(context.Background(), "what do you do?", 6)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "passage_1", got[0].ID)
	assert.Equal(t, "worked on Go services", got[0].Text)
	assert.InDelta(t, 0.93, got[0].Score, 1e-6)
	assert.Equal(t, "cv.pdf", got[0].Metadata["source"])
	assert.Contains(t, db.querySQL, "embedding <=> $1")
}

func TestSearch_MalformedMetadataTolerated(t *testing.T) {
	db := &fakeDB{rows: [][]any{
		{"passage_1", "text", []byte(`not json`), 0.5},
	}}
	store := NewStore(db, &mockEmbedder{}, nil)

	got, err := store.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Metadata)
}

func TestSearch_InvalidK(t *testing.T) {
	store := NewStore(&fakeDB{}, &mockEmbedder{}, nil)

	_, err := store.Search(context.Background(), "q", 0)
	assert.Error(t, err)
}

func TestSearch_QueryFailure(t *testing.T) {
	db := &fakeDB{queryErr: assert.AnError}
	store := NewStore(db, &mockEmbedder{}, nil)

	_, err := store.Search(context.Background(), "q", 3)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestPassageID_StableAndDistinct(t *testing.T) {
	a := passageID(testChunk(0))
	b := passageID(testChunk(0))
	c := passageID(testChunk(1))

	assert.Equal(t, a, b, "same source location yields the same ID")
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "passage_")
}
