package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
)

// SaveEmbeddings replaces all stored vectors with the given ones, tagged
// with the embedding model name.
func (s *SQLiteStorage) SaveEmbeddings(model string, embeddings []Embedding) error {
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

	if _, err := tx.Exec("DELETE FROM embeddings"); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO embeddings (path, vector, model, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare embedding insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range embeddings {
		if _, err := stmt.Exec(e.Path, vectorToJSON(e.Vector), model, now); err != nil {
			return fmt.Errorf("failed to save embedding for %s: %w", e.Path, err)
		}
	}

	return tx.Commit()
}

// LoadEmbeddings returns every stored vector produced by model. Vectors from
// another model are skipped; the returned count reports how many there were.
func (s *SQLiteStorage) LoadEmbeddings(model string) ([]Embedding, int, error) {
	if !s.enabled || s.db == nil {
		return nil, 0, ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT path, vector, model FROM embeddings ORDER BY path")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var out []Embedding
	mismatched := 0
	for rows.Next() {
		var path, vectorJSON, m string
		if err := rows.Scan(&path, &vectorJSON, &m); err != nil {
			return nil, 0, fmt.Errorf("failed to scan embedding: %w", err)
		}
		if m != model {
			mismatched++
			continue
		}
		vector, err := jsonToVector(vectorJSON)
		if err != nil {
			slog.Warn("skipping unreadable embedding", logging.Path(path), logging.Err(err))
			continue
		}
		out = append(out, Embedding{Path: path, Vector: vector})
	}

	return out, mismatched, rows.Err()
}
