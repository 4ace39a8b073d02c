package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
)

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "catalog_schema", up: s.migration001CatalogSchema},
		{version: 2, name: "history_schema", up: s.migration002HistorySchema},
	}

	for _, m := range migrations {
		if version < m.version {
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// execAll runs schema statements in order, naming the failing one.
func (s *SQLiteStorage) execAll(stmts []schemaStmt) error {
	for _, st := range stmts {
		if _, err := s.db.Exec(st.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", st.name, err)
		}
	}
	return nil
}

type schemaStmt struct {
	name string
	sql  string
}

// migration001CatalogSchema creates the file catalog and embedding tables.
func (s *SQLiteStorage) migration001CatalogSchema() error {
	return s.execAll([]schemaStmt{
		{"files table", `
			CREATE TABLE IF NOT EXISTS files (
				path TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				component TEXT NOT NULL,
				entity TEXT NOT NULL DEFAULT '',
				references_json TEXT NOT NULL DEFAULT '[]',
				lines INTEGER NOT NULL DEFAULT 0,
				size INTEGER NOT NULL DEFAULT 0,
				rank REAL NOT NULL DEFAULT 0
			)
		`},
		{"files component index", `
			CREATE INDEX IF NOT EXISTS idx_files_component ON files(component)
		`},
		{"file_apis table", `
			CREATE TABLE IF NOT EXISTS file_apis (
				path TEXT NOT NULL,
				api TEXT NOT NULL,
				api_lower TEXT NOT NULL,
				PRIMARY KEY (path, api)
			)
		`},
		{"file_apis name index", `
			CREATE INDEX IF NOT EXISTS idx_file_apis_lower ON file_apis(api_lower)
		`},
		{"embeddings table", `
			CREATE TABLE IF NOT EXISTS embeddings (
				path TEXT PRIMARY KEY,
				vector BLOB NOT NULL,
				model TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`},
	})
}

// migration002HistorySchema creates the search and usage history tables.
func (s *SQLiteStorage) migration002HistorySchema() error {
	return s.execAll([]schemaStmt{
		{"search_history table", `
			CREATE TABLE IF NOT EXISTS search_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				search_id TEXT NOT NULL UNIQUE,
				query_hash TEXT NOT NULL,
				mode TEXT NOT NULL,
				timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
				results_count INTEGER NOT NULL,
				cache_hit INTEGER NOT NULL DEFAULT 0,
				duration_ms INTEGER NOT NULL DEFAULT 0
			)
		`},
		{"search_history timestamp index", `
			CREATE INDEX IF NOT EXISTS idx_search_history_timestamp
			ON search_history(timestamp DESC)
		`},
		{"file_usage table", `
			CREATE TABLE IF NOT EXISTS file_usage (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				path TEXT NOT NULL,
				tool TEXT NOT NULL,
				context_hash TEXT NOT NULL DEFAULT '',
				timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`},
		{"file_usage path index", `
			CREATE INDEX IF NOT EXISTS idx_file_usage_path ON file_usage(path)
		`},
		{"file_usage timestamp index", `
			CREATE INDEX IF NOT EXISTS idx_file_usage_timestamp
			ON file_usage(timestamp DESC)
		`},
	})
}

// vectorToJSON converts a float32 vector to JSON for storage.
func vectorToJSON(vector []float32) string {
	data, err := json.Marshal(vector)
	if err != nil {
		slog.Warn("failed to encode vector", logging.Err(err))
		return "[]"
	}
	return string(data)
}

// jsonToVector parses JSON storage back to a float32 vector.
func jsonToVector(jsonStr string) ([]float32, error) {
	var vector []float32
	if err := json.Unmarshal([]byte(jsonStr), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

func stringsToJSON(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func jsonToStrings(jsonStr string) []string {
	var values []string
	if err := json.Unmarshal([]byte(jsonStr), &values); err != nil || len(values) == 0 {
		return nil
	}
	return values
}
