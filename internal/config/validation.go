package config

import (
	"fmt"
	"os"
)

// Validation limits. Values outside these ranges are almost certainly
// configuration mistakes rather than deliberate tuning.
const (
	maxChunkSize = 8192
	minChunkSize = 50

	maxBatchSize = 1000
	maxTopK      = 50
)

// Validate checks the configuration for internal consistency (fail-fast).
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name must not be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidModelName)
	}

	if c.ChunkSize < minChunkSize || c.ChunkSize > maxChunkSize {
		return fmt.Errorf("%w: chunk_size %d outside [%d, %d]",
			ErrInvalidChunking, c.ChunkSize, minChunkSize, maxChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)",
			ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.BatchSize <= 0 || c.BatchSize > maxBatchSize {
		return fmt.Errorf("%w: batch_size %d outside [1, %d]",
			ErrInvalidBatchSize, c.BatchSize, maxBatchSize)
	}

	if c.TopK <= 0 || c.TopK > maxTopK {
		return fmt.Errorf("%w: top_k %d outside [1, %d]", ErrInvalidTopK, c.TopK, maxTopK)
	}
	if c.MinPassageChars < 0 {
		return fmt.Errorf("%w: min_passage_chars must not be negative", ErrInvalidTopK)
	}

	if c.DocsDir == "" {
		return fmt.Errorf("%w: docs_dir must not be empty", ErrInvalidDocsDir)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port %d outside [1, 65535]",
			ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgres)
	}

	// Genkit reads the key directly from the environment; fail here rather
	// than at the first embedding call.
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingAPIKey)
	}

	return nil
}
