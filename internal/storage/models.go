package storage

import (
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/analysis"
)

// FileRecord is a catalog entry for one source file.
type FileRecord struct {
	analysis.FileInfo

	// Rank is the normalised PageRank of the file (0 when unranked).
	Rank float64 `json:"rank"`
}

// ComponentCount is the number of files in one component.
type ComponentCount struct {
	Component string `json:"component"`
	Files     int    `json:"files"`
}

// UsageEvent represents a single file access through the MCP tools.
type UsageEvent struct {
	// Path is the source-relative path of the file that was read.
	Path string `json:"path"`

	// Tool is the MCP tool that read the file.
	Tool string `json:"tool"`

	// ContextHash is the SHA256 hash of the preceding query, if any.
	ContextHash string `json:"context_hash"`

	// Timestamp is when the file was read.
	Timestamp time.Time `json:"timestamp"`
}

// SearchRecord represents a search query for analytics.
type SearchRecord struct {
	// SearchID is a unique identifier for this search (UUID).
	SearchID string `json:"search_id"`

	// QueryHash is the SHA256 hash of the search query for privacy.
	QueryHash string `json:"query_hash"`

	// Mode is the search mode (hybrid, keyword or semantic).
	Mode string `json:"mode"`

	// Timestamp is when the search was performed.
	Timestamp time.Time `json:"timestamp"`

	// ResultsCount is the number of results returned.
	ResultsCount int `json:"results_count"`

	// CacheHit reports whether results came from the query cache.
	CacheHit bool `json:"cache_hit"`

	// Duration is how long the search took.
	Duration time.Duration `json:"duration"`
}

// Embedding is a stored vector for one file.
type Embedding struct {
	Path   string    `json:"path"`
	Vector []float32 `json:"vector"`
}

// FileUsage is an access count for one file.
type FileUsage struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// SearchStats summarises the search and usage history.
type SearchStats struct {
	TotalSearches int            `json:"total_searches"`
	UniqueQueries int            `json:"unique_queries"`
	CacheHits     int            `json:"cache_hits"`
	AvgResults    float64        `json:"avg_results"`
	AvgDuration   time.Duration  `json:"avg_duration"`
	ByMode        map[string]int `json:"by_mode"`
	TotalReads    int            `json:"total_reads"`
	TopFiles      []FileUsage    `json:"top_files"`
}
