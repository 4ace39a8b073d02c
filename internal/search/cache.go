package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultCacheTTL is how long cached results stay valid.
const DefaultCacheTTL = 10 * time.Minute

// QueryCache stores search results in badger with a TTL.
type QueryCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// OpenCache opens (or creates) a cache directory.
func OpenCache(dir string, ttl time.Duration, logger *slog.Logger) (*QueryCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return openCache(opts, ttl, logger)
}

// NewMemCache returns an in-memory cache.
func NewMemCache(ttl time.Duration, logger *slog.Logger) (*QueryCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openCache(opts, ttl, logger)
}

func openCache(opts badger.Options, ttl time.Duration, logger *slog.Logger) (*QueryCache, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryCache{db: db, ttl: ttl, logger: logger}, nil
}

// CacheKey derives the cache key of a query from its mode, filters, limit
// and text.
func CacheKey(q Query) string {
	f := q.Filters.normalized()
	raw := strings.Join([]string{
		string(q.Mode),
		f.FileType,
		f.Component,
		strconv.Itoa(q.Limit),
		strings.TrimSpace(q.Text),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Get returns cached results. Errors are logged and reported as a miss.
func (c *QueryCache) Get(key string) ([]SearchResult, bool) {
	if c == nil || c.db == nil {
		return nil, false
	}

	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("query cache read failed", "error", err)
		}
		return nil, false
	}

	var results []SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Warn("query cache entry corrupt", "error", err)
		return nil, false
	}
	return results, true
}

// Set stores results under key. Errors are logged and ignored.
func (c *QueryCache) Set(key string, results []SearchResult) {
	if c == nil || c.db == nil {
		return
	}

	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn("query cache encode failed", "error", err)
		return
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(c.ttl))
	})
	if err != nil {
		c.logger.Warn("query cache write failed", "error", err)
	}
}

// Clear drops every cached entry.
func (c *QueryCache) Clear() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.DropAll(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close closes the cache database.
func (c *QueryCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	return nil
}
