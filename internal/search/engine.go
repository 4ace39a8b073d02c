package search

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
	"github.com/khanglvm/ifs-cloud-mcp/internal/metrics"
	"github.com/khanglvm/ifs-cloud-mcp/internal/ranking"
	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

const (
	// DefaultLimit is the result count when a query does not set one.
	DefaultLimit = 10

	// MaxLimit caps the result count of one query.
	MaxLimit = 100

	snippetMaxLen = 200
)

// Config tunes an Engine.
type Config struct {
	Fusion       FusionConfig
	CacheTTL     time.Duration
	DefaultLimit int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Fusion:       DefaultFusionConfig,
		CacheTTL:     DefaultCacheTTL,
		DefaultLimit: DefaultLimit,
	}
}

// PopularityFunc returns a popularity score in [0,1] per path.
type PopularityFunc func(paths []string) map[string]float64

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEmbedder replaces the default hashing embedder.
func WithEmbedder(embedder Embedder) Option {
	return func(e *Engine) { e.embedder = embedder }
}

// WithPopularity sets the popularity source used for boosting.
func WithPopularity(fn PopularityFunc) Option {
	return func(e *Engine) { e.popularity = fn }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Response is the outcome of a search.
type Response struct {
	Query    string         `json:"query"`
	Mode     Mode           `json:"mode"`
	Results  []SearchResult `json:"results"`
	CacheHit bool           `json:"cache_hit"`
	Took     time.Duration  `json:"took"`
}

// Stats describes the loaded indexes.
type Stats struct {
	Files       int    `json:"files"`
	KeywordDocs uint64 `json:"keyword_docs"`
	Vectors     int    `json:"vectors"`
	Model       string `json:"model,omitempty"`
	Ranked      int    `json:"ranked"`
	KeywordOnly bool   `json:"keyword_only"`
}

// Engine answers queries against one imported version.
type Engine struct {
	layout     dirs.Layout
	cfg        Config
	logger     *slog.Logger
	embedder   Embedder
	keyword    *Indexer
	vectors    *VectorIndex
	catalog    *storage.SQLiteStorage
	cache      *QueryCache
	ranks      map[string]float64
	popularity PopularityFunc
	metrics    *metrics.Metrics

	closeOnce sync.Once
	closeErr  error
}

// Open opens the hybrid engine of a version: catalog, keyword index and
// vector index are all required.
func Open(layout dirs.Layout, cfg Config, opts ...Option) (*Engine, error) {
	return open(layout, cfg, true, opts...)
}

// OpenKeywordOnly opens an engine without the vector index.
func OpenKeywordOnly(layout dirs.Layout, cfg Config, opts ...Option) (*Engine, error) {
	return open(layout, cfg, false, opts...)
}

func open(layout dirs.Layout, cfg Config, withVectors bool, opts ...Option) (*Engine, error) {
	e := &Engine{
		layout: layout,
		cfg:    normalizeConfig(cfg),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.embedder == nil {
		e.embedder = NewHashingEmbedder(DefaultDimensions)
	}

	if _, err := os.Stat(layout.Catalog); err != nil {
		return nil, fmt.Errorf("%w: catalog %s", ErrIndexNotBuilt, layout.Catalog)
	}
	catalog, err := storage.Open(layout.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	e.catalog = catalog

	keyword, err := OpenIndexer(layout.Keyword)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.keyword = keyword

	if withVectors {
		if err := e.loadVectors(); err != nil {
			e.Close()
			return nil, err
		}
	}

	e.ranks, err = ranking.ReadJSONL(layout.Ranked)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("failed to read ranks", "error", err)
		}
		e.ranks = map[string]float64{}
	}

	cache, err := OpenCache(layout.Cache, e.cfg.CacheTTL, e.logger)
	if err != nil {
		e.logger.Warn("query cache unavailable", "error", err)
	} else {
		e.cache = cache
	}

	return e, nil
}

func (e *Engine) loadVectors() error {
	meta, err := ReadVectorMeta(e.layout.Vectors)
	if err != nil {
		return err
	}
	if meta.Model != e.embedder.Model() {
		return fmt.Errorf("%w: vectors built with %s, embedder is %s", ErrIndexNotBuilt, meta.Model, e.embedder.Model())
	}

	vectors, err := LoadVectorIndex(e.catalog, meta.Model)
	if err != nil {
		return err
	}
	e.vectors = vectors
	return nil
}

func normalizeConfig(cfg Config) Config {
	if cfg.Fusion == (FusionConfig{}) {
		cfg.Fusion = DefaultFusionConfig
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > MaxLimit {
		cfg.DefaultLimit = DefaultLimit
	}
	return cfg
}

// KeywordOnly reports whether the engine runs without vectors.
func (e *Engine) KeywordOnly() bool { return e.vectors == nil }

// Catalog returns the version catalog.
func (e *Engine) Catalog() *storage.SQLiteStorage { return e.catalog }

// Layout returns the version layout.
func (e *Engine) Layout() dirs.Layout { return e.layout }

// Rank returns the PageRank of a path (0 when unranked).
func (e *Engine) Rank(path string) float64 { return e.ranks[path] }

// Search runs a query.
func (e *Engine) Search(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()

	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, errors.New("query must not be empty")
	}
	if q.Limit <= 0 {
		q.Limit = e.cfg.DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Mode == "" {
		q.Mode = ModeHybrid
	}
	q.Filters = q.Filters.normalized()

	if e.KeywordOnly() {
		switch q.Mode {
		case ModeSemantic:
			return nil, fmt.Errorf("%w: semantic search needs the vector index", ErrIndexNotBuilt)
		case ModeHybrid:
			q.Mode = ModeKeyword
		}
	}

	key := CacheKey(q)
	if cached, ok := e.cache.Get(key); ok {
		resp := &Response{Query: q.Text, Mode: q.Mode, Results: cached, CacheHit: true, Took: time.Since(start)}
		e.record(q, resp)
		return resp, nil
	}

	results, err := e.search(ctx, q)
	if err != nil {
		return nil, err
	}

	e.cache.Set(key, results)

	resp := &Response{Query: q.Text, Mode: q.Mode, Results: results, Took: time.Since(start)}
	e.record(q, resp)
	return resp, nil
}

func (e *Engine) search(ctx context.Context, q Query) ([]SearchResult, error) {
	candidates := q.Limit * 3

	var keyword, semantic []SearchResult
	if q.Mode != ModeSemantic {
		var err error
		keyword, err = e.keyword.SearchBM25(q.Text, candidates, q.Filters)
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Mode != ModeKeyword {
		semantic = e.vectors.Search(e.embedder.Embed(q.Text), candidates, q.Filters)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := fuseScores(keyword, semantic, e.cfg.Fusion)

	var popularity map[string]float64
	if e.popularity != nil && len(results) > 0 {
		paths := make([]string, len(results))
		for i, r := range results {
			paths[i] = r.Path
		}
		popularity = e.popularity(paths)
	}
	results = applyBoosts(results, e.ranks, popularity, e.cfg.Fusion)

	if len(results) > q.Limit {
		results = results[:q.Limit]
	}

	terms := Tokenize(q.Text)
	for i := range results {
		results[i].Snippet = e.snippet(results[i].Path, terms)
	}
	return results, nil
}

func (e *Engine) record(q Query, resp *Response) {
	e.metrics.ObserveSearch(string(q.Mode), resp.CacheHit, resp.Took)

	e.catalog.RecordSearch(storage.SearchRecord{
		SearchID:     uuid.NewString(),
		QueryHash:    storage.HashQuery(q.Text),
		Mode:         string(q.Mode),
		Timestamp:    time.Now(),
		ResultsCount: len(resp.Results),
		CacheHit:     resp.CacheHit,
		Duration:     resp.Took,
	})
}

// snippet returns the first line of the file containing a query term.
func (e *Engine) snippet(relPath string, terms []string) string {
	if len(terms) == 0 {
		return ""
	}
	full, err := e.layout.SourceFile(relPath)
	if err != nil {
		return ""
	}
	f, err := os.Open(full)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)
		for _, term := range terms {
			if len(term) > 1 && strings.Contains(lower, term) {
				return truncate(line, snippetMaxLen)
			}
		}
	}
	return ""
}

// ClearCache drops every cached query result.
func (e *Engine) ClearCache() error {
	return e.cache.Clear()
}

// Stats reports index sizes.
func (e *Engine) Stats() Stats {
	stats := Stats{Ranked: len(e.ranks), KeywordOnly: e.KeywordOnly()}
	if n, err := e.catalog.CountFiles(); err == nil {
		stats.Files = n
	}
	if e.keyword != nil {
		if n, err := e.keyword.Count(); err == nil {
			stats.KeywordDocs = n
		}
	}
	if e.vectors != nil {
		stats.Vectors = e.vectors.Len()
		stats.Model = e.vectors.Model()
	}
	return stats
}

// Close releases the keyword index, cache and catalog.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if e.keyword != nil {
			errs = append(errs, e.keyword.Close())
		}
		if e.cache != nil {
			errs = append(errs, e.cache.Close())
		}
		if e.catalog != nil {
			errs = append(errs, e.catalog.Close())
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
