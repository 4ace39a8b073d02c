package storage

import (
	"log/slog"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
)

// RecordUsage records a file access event.
func (s *SQLiteStorage) RecordUsage(event UsageEvent) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO file_usage (path, tool, context_hash, timestamp)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		event.Path,
		event.Tool,
		event.ContextHash,
		event.Timestamp.UTC().Format(time.RFC3339),
	)

	if err != nil {
		slog.Warn("failed to record file read", logging.Err(err))
	}

	return nil
}

// GetUsageHistory retrieves usage for a file since a given time. An empty
// path returns usage of every file.
func (s *SQLiteStorage) GetUsageHistory(path string, since time.Time) ([]UsageEvent, error) {
	if !s.enabled || s.db == nil {
		return []UsageEvent{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT path, tool, context_hash, timestamp
		FROM file_usage
		WHERE (? = '' OR path = ?) AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := s.db.Query(query, path, path, since.UTC().Format(time.RFC3339))
	if err != nil {
		slog.Warn("failed to query read history", logging.Err(err))
		return []UsageEvent{}, nil
	}
	defer rows.Close()

	var events []UsageEvent
	for rows.Next() {
		var event UsageEvent
		var timestampStr string

		if err := rows.Scan(
			&event.Path,
			&event.Tool,
			&event.ContextHash,
			&timestampStr,
		); err != nil {
			slog.Warn("skipping unreadable history row", logging.Err(err))
			continue
		}

		event.Timestamp, err = time.Parse(time.RFC3339, timestampStr)
		if err != nil {
			slog.Warn("skipping history row with bad timestamp", logging.Err(err))
			continue
		}

		events = append(events, event)
	}

	return events, nil
}
