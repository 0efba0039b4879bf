package app

import (
	"context"
	"fmt"

	"github.com/dvega/askme/internal/document"
	"github.com/dvega/askme/internal/knowledge"
	"github.com/dvega/askme/internal/log"
)

// Ingestor runs the full ingestion pipeline: load documents from the
// source directory, chunk them, and populate the vector index. Safe to
// run repeatedly; the populator skips an already-populated index before
// any document is read twice into the store.
type Ingestor struct {
	loader    *document.Loader
	chunker   *document.Chunker
	populator *knowledge.Populator
	docsDir   string
	logger    log.Logger
}

// NewIngestor wires the ingestion pipeline.
func NewIngestor(loader *document.Loader, chunker *document.Chunker, populator *knowledge.Populator, docsDir string, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingestor{
		loader:    loader,
		chunker:   chunker,
		populator: populator,
		docsDir:   docsDir,
		logger:    logger,
	}
}

// Run loads, chunks, and indexes the knowledge base, reporting the
// populator's terminal status.
func (i *Ingestor) Run(ctx context.Context) (knowledge.Status, error) {
	// Cheap short-circuit so per-request bootstrap checks do not re-read
	// the source documents once the index is live.
	populated, err := i.populator.Populated(ctx)
	if err != nil {
		return "", err
	}
	if populated {
		return knowledge.StatusSkipped, nil
	}

	docs, err := i.loader.Load(i.docsDir)
	if err != nil {
		return "", fmt.Errorf("loading documents from %s: %w", i.docsDir, err)
	}

	chunks := i.chunker.Split(docs)
	i.logger.Info("ingestion prepared", "documents", len(docs), "chunks", len(chunks))

	status, err := i.populator.Populate(ctx, chunks)
	if err != nil {
		return "", err
	}
	i.logger.Info("ingestion finished", "status", string(status))
	return status, nil
}
