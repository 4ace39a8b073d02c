package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

var resultFields = []string{"path", "name", "type", "component"}

// SearchBM25 performs BM25 keyword search using Bleve, optionally restricted
// by file type and component.
func (i *Indexer) SearchBM25(text string, limit int, filters Filters) ([]SearchResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.bleveIndex == nil {
		return nil, fmt.Errorf("%w: keyword index closed", ErrIndexNotBuilt)
	}
	if limit <= 0 {
		limit = 10
	}

	searchRequest := bleve.NewSearchRequestOptions(i.buildFilteredQuery(text, filters.normalized()), limit, 0, false)
	searchRequest.Fields = resultFields

	results, err := i.bleveIndex.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	return convertBleveResults(results), nil
}

// buildFilteredQuery creates a conjunction of the match query and a term
// query per active filter.
func (i *Indexer) buildFilteredQuery(text string, filters Filters) query.Query {
	matchQuery := i.buildMatchQuery(text)

	var conjuncts []query.Query
	if filters.FileType != "" {
		typeQuery := bleve.NewTermQuery(filters.FileType)
		typeQuery.SetField("type")
		conjuncts = append(conjuncts, typeQuery)
	}
	if filters.Component != "" {
		componentQuery := bleve.NewTermQuery(filters.Component)
		componentQuery.SetField("component")
		conjuncts = append(conjuncts, componentQuery)
	}

	if len(conjuncts) == 0 {
		return matchQuery
	}
	return bleve.NewConjunctionQuery(append([]query.Query{matchQuery}, conjuncts...)...)
}

// convertBleveResults converts Bleve search results to our SearchResult format.
func convertBleveResults(results *bleve.SearchResult) []SearchResult {
	searchResults := make([]SearchResult, 0, len(results.Hits))

	for _, hit := range results.Hits {
		name, _ := hit.Fields["name"].(string)
		fileType, _ := hit.Fields["type"].(string)
		component, _ := hit.Fields["component"].(string)

		searchResults = append(searchResults, SearchResult{
			Path:      hit.ID,
			Name:      name,
			Type:      fileType,
			Component: component,
			Score:     hit.Score,
		})
	}

	return searchResults
}
