/*
Package search implements hybrid search over an IFS Cloud source tree.

Keyword relevance comes from a persistent bleve (BM25) index and semantic
relevance from a flat vector index over hashed embeddings. Both result lists
are normalised and fused, then boosted by the file's PageRank and its usage
popularity. Results are cached in badger keyed by the query.
*/
package search

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIndexNotBuilt is returned when a required index is missing or was built
// by an incompatible embedder.
var ErrIndexNotBuilt = errors.New("search index not built")

// Mode selects which relevance signals a search uses.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
)

// ParseMode parses a mode name; the empty string means hybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHybrid:
		return ModeHybrid, nil
	case ModeKeyword:
		return ModeKeyword, nil
	case ModeSemantic:
		return ModeSemantic, nil
	}
	return "", fmt.Errorf("invalid search mode %q (expected hybrid, keyword or semantic)", s)
}

// Filters restrict results by file type and component.
type Filters struct {
	FileType  string `json:"file_type,omitempty"`
	Component string `json:"component,omitempty"`
}

func (f Filters) normalized() Filters {
	return Filters{
		FileType:  strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f.FileType), ".")),
		Component: strings.ToLower(strings.TrimSpace(f.Component)),
	}
}

func (f Filters) match(fileType, component string) bool {
	if f.FileType != "" && f.FileType != fileType {
		return false
	}
	if f.Component != "" && f.Component != component {
		return false
	}
	return true
}

// Query is one search request.
type Query struct {
	Text    string
	Limit   int
	Mode    Mode
	Filters Filters
}

// SearchResult represents a single search result with relevance score.
type SearchResult struct {
	Path      string  `json:"path"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Component string  `json:"component"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet,omitempty"`
}

// Document is a source file as stored in the keyword index.
type Document struct {
	Path      string
	Name      string
	Type      string
	Component string
	Entity    string
	APIs      []string
	Keywords  string
	Content   string
}
