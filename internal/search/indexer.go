package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
)

// indexBatchSize bounds the documents per bleve batch.
const indexBatchSize = 500

// Indexer manages the keyword index of a version.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	indexPath  string
}

// NewIndexerWithPath creates a new indexer with persistent disk storage,
// opening the index if it already exists.
func NewIndexerWithPath(indexPath string) (*Indexer, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err := bleve.NewUsing(indexPath, buildIndexMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open/create index: %w", err)
		}
	}

	return &Indexer{
		bleveIndex: index,
		indexPath:  indexPath,
	}, nil
}

// OpenIndexer opens an existing persistent index.
func OpenIndexer(indexPath string) (*Indexer, error) {
	if _, err := os.Stat(indexPath); err != nil {
		return nil, fmt.Errorf("%w: keyword index %s", ErrIndexNotBuilt, indexPath)
	}

	index, err := bleve.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return &Indexer{
		bleveIndex: index,
		indexPath:  indexPath,
	}, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	fileMapping := bleve.NewDocumentMapping()

	// Path: stored, exact match only.
	fileMapping.AddFieldMappingsAt("path", bleve.NewKeywordFieldMapping())

	fileMapping.AddFieldMappingsAt("name", bleve.NewTextFieldMapping())

	// Type and component are filter fields.
	fileMapping.AddFieldMappingsAt("type", bleve.NewKeywordFieldMapping())
	fileMapping.AddFieldMappingsAt("component", bleve.NewKeywordFieldMapping())

	fileMapping.AddFieldMappingsAt("entity", bleve.NewTextFieldMapping())
	fileMapping.AddFieldMappingsAt("apis", bleve.NewTextFieldMapping())
	fileMapping.AddFieldMappingsAt("keywords", bleve.NewTextFieldMapping())

	// Content is searchable but not stored; snippets are read from source.
	contentMapping := bleve.NewTextFieldMapping()
	contentMapping.Store = false
	fileMapping.AddFieldMappingsAt("content", contentMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", fileMapping)

	return indexMapping
}

// IndexDocuments indexes files in batches, keyed by path.
func (i *Indexer) IndexDocuments(docs []Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, doc := range docs {
		fields := map[string]interface{}{
			"path":      doc.Path,
			"name":      doc.Name,
			"type":      doc.Type,
			"component": doc.Component,
			"entity":    doc.Entity,
			"apis":      strings.Join(doc.APIs, " "),
			"keywords":  doc.Keywords,
			"content":   doc.Content,
		}

		if err := batch.Index(doc.Path, fields); err != nil {
			slog.Warn("failed to index file", logging.Path(doc.Path), logging.Err(err))
			continue
		}

		if batch.Size() >= indexBatchSize {
			if err := i.bleveIndex.Batch(batch); err != nil {
				return fmt.Errorf("failed to batch index files: %w", err)
			}
			batch.Reset()
		}
	}

	if batch.Size() > 0 {
		if err := i.bleveIndex.Batch(batch); err != nil {
			return fmt.Errorf("failed to batch index files: %w", err)
		}
	}

	return nil
}

// Count returns the total number of indexed files.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}

	return docCount, nil
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		err := i.bleveIndex.Close()
		i.bleveIndex = nil
		return err
	}

	return nil
}

// buildMatchQuery creates a match query for BM25 search.
func (i *Indexer) buildMatchQuery(searchText string) query.Query {
	return bleve.NewMatchQuery(searchText)
}
