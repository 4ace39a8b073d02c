/*
Package storage implements the per-version SQLite catalog.

The catalog holds the analysed file metadata, the embedding vectors used by
the vector index, and the search and usage history that feeds popularity
scoring. It lives at <version>/analysis/catalog.db and uses modernc.org/sqlite
(a pure Go, CGo-free implementation).

History writes degrade gracefully: if the database is unavailable they are
logged and dropped so that serving searches never fails because of analytics.
*/
package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Storage defines the history operations used by the usage tracker.
type Storage interface {
	// Init initializes the database and runs migrations.
	Init() error

	// RecordUsage records a file access event.
	RecordUsage(event UsageEvent) error

	// GetUsageHistory retrieves usage for a file (all files when path is
	// empty) since a given time.
	GetUsageHistory(path string, since time.Time) ([]UsageEvent, error)

	// RecordSearch records a search query for analytics.
	RecordSearch(search SearchRecord) error

	// Cleanup removes old records based on retention policy.
	Cleanup(retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// Catalog is the read side of the file catalog used by the MCP tools.
type Catalog interface {
	GetFile(path string) (*FileRecord, error)
	FindAPI(name string) ([]FileRecord, error)
	ListComponents() ([]ComponentCount, error)
	CountFiles() (int, error)
}

var (
	_ Storage = (*SQLiteStorage)(nil)
	_ Catalog = (*SQLiteStorage)(nil)
)

// SQLiteStorage implements Storage and Catalog using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
}

// NewStorage creates a storage instance for the database at dbPath.
//
// An empty path yields a disabled storage whose operations are no-ops.
// The database is not opened until Init is called.
func NewStorage(dbPath string) *SQLiteStorage {
	if dbPath == "" {
		return &SQLiteStorage{enabled: false}
	}
	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
	}
}

// Open creates and initializes a storage at dbPath.
func Open(dbPath string) (*SQLiteStorage, error) {
	s := NewStorage(dbPath)
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			return
		}
		// A single connection keeps writers serialised without SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			return
		}
	})

	return initErr
}

// Enabled reports whether the database is usable.
func (s *SQLiteStorage) Enabled() bool {
	return s.enabled && s.db != nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// HashQuery creates a SHA256 hash of a query string for privacy.
func HashQuery(query string) string {
	hash := sha256.Sum256([]byte(query))
	return hex.EncodeToString(hash[:])
}
