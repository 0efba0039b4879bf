// Package document implements ingestion of the knowledge-base source
// documents: loading per-page text from a directory of files and splitting
// it into overlapping, size-bounded chunks suitable for embedding.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/dvega/askme/internal/log"
)

// RawDocument is one page of extracted text with its source metadata.
// Created by the Loader, one per page, and consumed by the Chunker.
type RawDocument struct {
	SourcePath string
	PageNumber int
	Text       string
	Metadata   map[string]any
}

// supportedExtensions are the file types the loader can extract text from.
// PDF is the reference format for the CV corpus; plain text and markdown
// are accepted for supplementary material.
var supportedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// Loader reads a directory of source documents and extracts per-page text.
type Loader struct {
	logger log.Logger
}

// NewLoader creates a Loader. A nil logger is replaced with a no-op logger.
func NewLoader(logger log.Logger) *Loader {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Loader{logger: logger}
}

// Load scans dir for supported documents and returns one RawDocument per
// page, ordered by file name and then page number. A directory with zero
// eligible files yields an empty slice and a nil error: "nothing to index"
// is a signal for the caller, not a failure.
func (l *Loader) Load(dir string) ([]RawDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading docs directory %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []RawDocument
	for _, name := range names {
		path := filepath.Join(dir, name)
		pages, err := l.loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		docs = append(docs, pages...)
		l.logger.Info("loaded document", "file", name, "pages", len(pages), "total", len(docs))
	}

	if len(docs) == 0 {
		l.logger.Warn("no eligible documents found", "dir", dir)
	}
	return docs, nil
}

// loadFile dispatches on file extension.
func (l *Loader) loadFile(path string) ([]RawDocument, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return l.loadPDF(path)
	}
	return l.loadPlainText(path)
}

// loadPDF extracts text page by page, preserving page order.
// Pages with no extractable text are skipped.
func (l *Loader) loadPDF(path string) ([]RawDocument, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var docs []RawDocument
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, newRawDocument(path, i, text))
	}
	return docs, nil
}

// loadPlainText reads the whole file as a single page.
func (l *Loader) loadPlainText(path string) ([]RawDocument, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path comes from the configured docs dir scan
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, nil
	}
	return []RawDocument{newRawDocument(path, 1, text)}, nil
}

func newRawDocument(path string, page int, text string) RawDocument {
	return RawDocument{
		SourcePath: path,
		PageNumber: page,
		Text:       text,
		Metadata: map[string]any{
			"source":    path,
			"file_name": filepath.Base(path),
			"page":      page,
			// Stored as time.Time on purpose; the index populator is
			// responsible for serializing temporal values before upsert.
			"loaded_at": time.Now(),
		},
	}
}
