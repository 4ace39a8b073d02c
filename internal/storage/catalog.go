package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/khanglvm/ifs-cloud-mcp/internal/analysis"
)

// ErrDisabled is returned by catalog writes when the database could not be opened.
var ErrDisabled = errors.New("catalog storage is disabled")

// ReplaceFiles replaces the whole catalog with files, attaching ranks by path.
func (s *SQLiteStorage) ReplaceFiles(files []analysis.FileInfo, ranks map[string]float64) error {
	if !s.enabled || s.db == nil {
		return ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM file_apis", "DELETE FROM files"} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}
	}

	fileStmt, err := tx.Prepare(`
		INSERT INTO files (path, name, type, component, entity, references_json, lines, size, rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare file insert: %w", err)
	}
	defer fileStmt.Close()

	apiStmt, err := tx.Prepare("INSERT OR IGNORE INTO file_apis (path, api, api_lower) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare api insert: %w", err)
	}
	defer apiStmt.Close()

	for _, f := range files {
		if _, err := fileStmt.Exec(
			f.Path,
			f.Name,
			f.Type,
			f.Component,
			f.Entity,
			stringsToJSON(f.References),
			f.Lines,
			f.Size,
			ranks[f.Path],
		); err != nil {
			return fmt.Errorf("failed to insert %s: %w", f.Path, err)
		}
		for _, api := range f.APIs {
			if _, err := apiStmt.Exec(f.Path, api, strings.ToLower(api)); err != nil {
				return fmt.Errorf("failed to insert api %s: %w", api, err)
			}
		}
	}

	return tx.Commit()
}

// GetFile returns the catalog entry for a path, or an error wrapping
// fs.ErrNotExist when the path is not catalogued.
func (s *SQLiteStorage) GetFile(path string) (*FileRecord, error) {
	if !s.enabled || s.db == nil {
		return nil, ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT path, name, type, component, entity, references_json, lines, size, rank
		FROM files WHERE path = ?
	`, path)

	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", path, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file record: %w", err)
	}

	apis, err := s.apisFor(path)
	if err != nil {
		return nil, err
	}
	rec.APIs = apis
	return rec, nil
}

// FindAPI returns the files defining an API, package or routine name
// (case-insensitive), highest rank first.
func (s *SQLiteStorage) FindAPI(name string) ([]FileRecord, error) {
	if !s.enabled || s.db == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT DISTINCT f.path, f.name, f.type, f.component, f.entity, f.references_json, f.lines, f.size, f.rank
		FROM files f JOIN file_apis a ON a.path = f.path
		WHERE a.api_lower = ?
		ORDER BY f.rank DESC, f.path
	`, strings.ToLower(name))
	if err != nil {
		return nil, fmt.Errorf("failed to query api: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		apis, err := s.apisFor(records[i].Path)
		if err != nil {
			return nil, err
		}
		records[i].APIs = apis
	}
	return records, nil
}

// ListComponents returns every component with its file count, by name.
func (s *SQLiteStorage) ListComponents() ([]ComponentCount, error) {
	if !s.enabled || s.db == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT component, COUNT(*) FROM files
		GROUP BY component ORDER BY component
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	defer rows.Close()

	var out []ComponentCount
	for rows.Next() {
		var c ComponentCount
		if err := rows.Scan(&c.Component, &c.Files); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountFiles returns the number of catalogued files.
func (s *SQLiteStorage) CountFiles() (int, error) {
	if !s.enabled || s.db == nil {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

// ListFiles returns every catalogued file ordered by path.
func (s *SQLiteStorage) ListFiles() ([]FileRecord, error) {
	if !s.enabled || s.db == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT path, name, type, component, entity, references_json, lines, size, rank
		FROM files ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	apis, err := s.allAPIs()
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].APIs = apis[records[i].Path]
	}
	return records, nil
}

// apisFor must be called with s.mu held.
func (s *SQLiteStorage) apisFor(path string) ([]string, error) {
	rows, err := s.db.Query("SELECT api FROM file_apis WHERE path = ? ORDER BY api", path)
	if err != nil {
		return nil, fmt.Errorf("failed to query apis: %w", err)
	}
	defer rows.Close()

	var apis []string
	for rows.Next() {
		var api string
		if err := rows.Scan(&api); err != nil {
			return nil, err
		}
		apis = append(apis, api)
	}
	return apis, rows.Err()
}

// allAPIs must be called with s.mu held.
func (s *SQLiteStorage) allAPIs() (map[string][]string, error) {
	rows, err := s.db.Query("SELECT path, api FROM file_apis ORDER BY path, api")
	if err != nil {
		return nil, fmt.Errorf("failed to query apis: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var path, api string
		if err := rows.Scan(&path, &api); err != nil {
			return nil, err
		}
		out[path] = append(out[path], api)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*FileRecord, error) {
	var rec FileRecord
	var refs string
	if err := row.Scan(
		&rec.Path,
		&rec.Name,
		&rec.Type,
		&rec.Component,
		&rec.Entity,
		&refs,
		&rec.Lines,
		&rec.Size,
		&rec.Rank,
	); err != nil {
		return nil, err
	}
	rec.References = jsonToStrings(refs)
	return &rec, nil
}
