package storage

import (
	"log/slog"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
)

// RecordSearch records a search query for analytics.
func (s *SQLiteStorage) RecordSearch(search SearchRecord) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO search_history (search_id, query_hash, mode, timestamp, results_count, cache_hit, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		search.SearchID,
		search.QueryHash,
		search.Mode,
		search.Timestamp.UTC().Format(time.RFC3339),
		search.ResultsCount,
		boolToInt(search.CacheHit),
		search.Duration.Milliseconds(),
	)

	if err != nil {
		slog.Warn("failed to record search", logging.Err(err))
	}

	return nil
}

// SearchStats summarises search and usage history. topN bounds TopFiles.
func (s *SQLiteStorage) SearchStats(topN int) (*SearchStats, error) {
	stats := &SearchStats{ByMode: make(map[string]int)}
	if !s.enabled || s.db == nil {
		return stats, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var avgResults, avgDuration float64
	row := s.db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT query_hash), COALESCE(SUM(cache_hit), 0),
		       COALESCE(AVG(results_count), 0), COALESCE(AVG(duration_ms), 0)
		FROM search_history
	`)
	if err := row.Scan(&stats.TotalSearches, &stats.UniqueQueries, &stats.CacheHits, &avgResults, &avgDuration); err != nil {
		return nil, err
	}
	stats.AvgResults = avgResults
	stats.AvgDuration = time.Duration(avgDuration * float64(time.Millisecond))

	rows, err := s.db.Query("SELECT mode, COUNT(*) FROM search_history GROUP BY mode")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var mode string
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByMode[mode] = n
	}
	rows.Close()

	if err := s.db.QueryRow("SELECT COUNT(*) FROM file_usage").Scan(&stats.TotalReads); err != nil {
		return nil, err
	}

	if topN <= 0 {
		return stats, nil
	}

	rows, err = s.db.Query(`
		SELECT path, COUNT(*) AS n FROM file_usage
		GROUP BY path ORDER BY n DESC, path LIMIT ?
	`, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var fu FileUsage
		if err := rows.Scan(&fu.Path, &fu.Count); err != nil {
			return nil, err
		}
		stats.TopFiles = append(stats.TopFiles, fu)
	}

	return stats, rows.Err()
}

// Cleanup removes old history records based on retention policy.
func (s *SQLiteStorage) Cleanup(retention time.Duration) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)

	if _, err := s.db.Exec("DELETE FROM file_usage WHERE timestamp < ?", cutoff); err != nil {
		slog.Warn("failed to prune file reads", logging.Err(err))
	}

	if _, err := s.db.Exec("DELETE FROM search_history WHERE timestamp < ?", cutoff); err != nil {
		slog.Warn("failed to prune search history", logging.Err(err))
	}

	if _, err := s.db.Exec("VACUUM"); err != nil {
		slog.Warn("failed to vacuum catalog", logging.Err(err))
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
