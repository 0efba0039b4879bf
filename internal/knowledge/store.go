package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/dvega/askme/internal/document"
	"github.com/dvega/askme/internal/log"
)

// VectorDimension is the embedding dimensionality of the passages table.
// gemini-embedding-001 produces 3072-dim vectors unless told otherwise, so
// every embed request must carry embedOptions to truncate to this size; the
// same embedder and dimensionality must be used at index time and query time.
const VectorDimension = 768

// opTimeout bounds each store operation, covering the embedding call and
// the database round trip. Expiry surfaces as ErrUpstreamTimeout.
const opTimeout = 30 * time.Second

// embedOptions is passed through Genkit to the googlegenai plugin as the
// request's EmbedContentConfig. Without it the provider default applies
// and the resulting vectors do not fit the passages schema.
func embedOptions() *genai.EmbedContentConfig {
	return &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr[int32](VectorDimension),
	}
}

// DB is the subset of pgxpool.Pool the store depends on.
// Interface defined by the consumer, not the provider, so tests can
// substitute a fake without a database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages indexed passages in PostgreSQL + pgvector.
// It generates embeddings through the injected embedder and exposes the
// narrow contract the pipeline needs: record count, batch upsert, and
// top-k similarity search.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db       DB
	embedder ai.Embedder
	logger   log.Logger
}

// NewStore creates a Store. A nil logger is replaced with a no-op logger.
func NewStore(db DB, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

// Count returns the total number of indexed passages.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM passages`).Scan(&count); err != nil {
		return 0, wrapStoreErr("counting passages", err)
	}
	return int(count), nil
}

// AddBatch embeds a batch of chunks in a single embedding call and upserts
// them into the passages table as one statement. The batch is atomic:
// either every row lands or none does.
//
// Chunk metadata must already be sanitized (no raw temporal values); see
// Populator.
func (s *Store) AddBatch(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	input := make([]*ai.Document, len(chunks))
	for i, ch := range chunks {
		input[i] = ai.DocumentFromText(ch.Text, nil)
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: input, Options: embedOptions()})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: embedding batch: %w", ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(resp.Embeddings) != len(chunks) {
		return fmt.Errorf("%w: got %d embeddings for %d chunks", ErrEmbedding, len(resp.Embeddings), len(chunks))
	}

	// Multi-row parameterized INSERT; a single statement keeps the batch
	// atomic without an explicit transaction.
	var (
		sb   strings.Builder
		args = make([]any, 0, len(chunks)*4)
	)
	sb.WriteString(`INSERT INTO passages (id, content, embedding, metadata) VALUES `)
	for i, ch := range chunks {
		if len(resp.Embeddings[i].Embedding) == 0 {
			return fmt.Errorf("%w: empty embedding for chunk %d", ErrEmbedding, i)
		}

		metadataJSON, err := json.Marshal(ch.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for chunk %d: %w", i, err)
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 4
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4)
		args = append(args,
			passageID(ch),
			ch.Text,
			pgvector.NewVector(resp.Embeddings[i].Embedding),
			metadataJSON,
		)
	}
	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding,
		metadata = EXCLUDED.metadata`)

	if _, err := s.db.Exec(ctx, sb.String(), args...); err != nil {
		return wrapStoreErr("upserting batch", err)
	}

	s.logger.Debug("upserted batch", "size", len(chunks))
	return nil
}

// Search embeds the query and returns up to k passages ordered by
// descending cosine similarity, each carrying its score and stored
// metadata.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(query, nil)},
		Options: embedOptions(),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: embedding query: %w", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned for query", ErrEmbedding)
	}

	queryVec := pgvector.NewVector(resp.Embeddings[0].Embedding)
	rows, err := s.db.Query(ctx, `
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM passages
		ORDER BY embedding <=> $1
		LIMIT $2`,
		queryVec, k)
	if err != nil {
		return nil, wrapStoreErr("searching passages", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var (
			p            Passage
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&p.ID, &p.Text, &metadataJSON, &similarity); err != nil {
			return nil, wrapStoreErr("scanning passage", err)
		}
		if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
			s.logger.Warn("failed to parse passage metadata", "id", p.ID, "error", err)
			p.Metadata = map[string]any{}
		}
		p.Score = float32(similarity)
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("reading search results", err)
	}

	return passages, nil
}

// wrapStoreErr maps database failures onto the sentinel error taxonomy.
func wrapStoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrUpstreamTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// passageID derives a stable passage ID from source location and chunk
// index, so re-ingestion upserts rather than duplicates.
func passageID(ch document.Chunk) string {
	key := fmt.Sprintf("%v|%v|%v", ch.Metadata["source"], ch.Metadata["page"], ch.Metadata["chunk_index"])
	sum := sha256.Sum256([]byte(key))
	return "passage_" + hex.EncodeToString(sum[:16])
}
