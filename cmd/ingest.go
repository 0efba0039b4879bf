package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvega/askme/internal/app"
	"github.com/dvega/askme/internal/config"
	"github.com/dvega/askme/internal/knowledge"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load, chunk, and index the knowledge base documents",
	Long: `Reads the configured documents directory, splits each document into
overlapping chunks, embeds them, and writes them to the vector index.

Ingestion is idempotent: if the index already holds records the run is
skipped. The server also ingests lazily on the first question, so this
command is for warming the index ahead of traffic.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	status, err := a.Ingestor.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingesting documents: %w", err)
	}

	switch status {
	case knowledge.StatusSkipped:
		fmt.Println("Index already populated, nothing to do.")
	case knowledge.StatusEmptyInput:
		fmt.Printf("No documents found in %s.\n", cfg.DocsDir)
	case knowledge.StatusCompleted:
		fmt.Println("Knowledge base indexed.")
	}
	return nil
}
