package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/dvega/askme/internal/document"
	"github.com/dvega/askme/internal/log"
)

// Status is the terminal outcome of a population run.
type Status string

const (
	// StatusEmptyInput means there were no chunks to index; the run was a
	// no-op. Non-fatal: an empty source directory is a signal, not an error.
	StatusEmptyInput Status = "empty-input"

	// StatusSkipped means the index already holds records, so no writes
	// were performed (first-write-wins semantics).
	StatusSkipped Status = "skipped-already-populated"

	// StatusCompleted means every batch was embedded and upserted.
	StatusCompleted Status = "completed"
)

// PopulatorStore is the storage contract the populator depends on.
// Satisfied by *Store; defined here so tests can substitute a fake.
type PopulatorStore interface {
	Count(ctx context.Context) (int, error)
	AddBatch(ctx context.Context, chunks []document.Chunk) error
}

// Populator writes chunks to the vector index in bounded batches.
//
// Population is idempotent across repeated invocations and process
// restarts: if the index already contains records, the run short-circuits
// without writing. The pipeline never deletes or re-embeds existing
// vectors.
type Populator struct {
	store     PopulatorStore
	batchSize int
	logger    log.Logger
}

// NewPopulator creates a Populator. A non-positive batchSize falls back to
// the default of 100.
func NewPopulator(store PopulatorStore, batchSize int, logger log.Logger) *Populator {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Populator{store: store, batchSize: batchSize, logger: logger}
}

// Populated reports whether the index already holds records. Callers use
// it to skip the expensive load-and-chunk phase entirely; Populate
// re-checks on its own before writing.
func (p *Populator) Populated(ctx context.Context) (bool, error) {
	count, err := p.store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("checking index population: %w", err)
	}
	return count > 0, nil
}

// Populate indexes the given chunks.
//
// Contract:
//  1. If the store already holds records, returns StatusSkipped without
//     writing.
//  2. If there are no chunks, returns StatusEmptyInput.
//  3. Otherwise sanitizes each chunk's metadata in place, partitions the
//     chunks into fixed-size batches, and embeds + upserts each batch
//     sequentially. A failed batch aborts the whole run: partial-index
//     population is worse than failing loudly.
func (p *Populator) Populate(ctx context.Context, chunks []document.Chunk) (Status, error) {
	count, err := p.store.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking index population: %w", err)
	}
	if count > 0 {
		p.logger.Info("index already populated, skipping", "records", count)
		return StatusSkipped, nil
	}

	if len(chunks) == 0 {
		p.logger.Info("no chunks to index")
		return StatusEmptyInput, nil
	}

	for i := range chunks {
		SanitizeMetadata(chunks[i].Metadata)
	}

	indexed := 0
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]

		if err := p.store.AddBatch(ctx, batch); err != nil {
			return "", fmt.Errorf("indexing batch %d (chunks %d-%d): %w",
				start/p.batchSize, start, end-1, err)
		}

		indexed += len(batch)
		p.logger.Info("indexed batch", "batch", start/p.batchSize, "embedded", indexed, "total", len(chunks))
	}

	return StatusCompleted, nil
}

// SanitizeMetadata converts values that the index cannot store natively
// into storable scalars. Temporal values become RFC 3339 strings; raw
// time.Time fields must never reach the upsert.
func SanitizeMetadata(meta map[string]any) {
	for k, v := range meta {
		switch t := v.(type) {
		case time.Time:
			meta[k] = t.Format(time.RFC3339)
		case *time.Time:
			if t != nil {
				meta[k] = t.Format(time.RFC3339)
			} else {
				delete(meta, k)
			}
		case time.Duration:
			meta[k] = t.String()
		}
	}
}
