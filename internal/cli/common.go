/*
Package cli implements the command-line interface for ifs-cloud-mcp.

Each command is implemented as a separate function that returns a *cobra.Command,
allowing for clean separation and easy testing.
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/khanglvm/ifs-cloud-mcp/internal/config"
	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
	"github.com/khanglvm/ifs-cloud-mcp/internal/learning"
	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

// errNoVersion is returned when neither an argument nor defaultVersion names a version.
var errNoVersion = errors.New("no version given and no defaultVersion configured")

// loadConfig reads ~/.ifs-cloud-mcp.json, falling back to the defaults.
func loadConfig() (*config.Config, error) {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// resolveLayout returns the layout of an imported version. An empty version
// falls back to the configured default.
func resolveLayout(cfg *config.Config, version string) (dirs.Layout, error) {
	if version == "" {
		version = cfg.DefaultVersion
	}
	if version == "" {
		return dirs.Layout{}, errNoVersion
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return dirs.Layout{}, err
	}
	dir, err := dirs.ResolveVersion(dataDir, version)
	if err != nil {
		return dirs.Layout{}, fmt.Errorf("%w\nRun 'ifs-cloud-mcp list' to see imported versions", err)
	}
	return dirs.NewLayout(dir), nil
}

// openEngine opens the search engine of a version. Without a vector index the
// engine runs keyword-only.
func openEngine(layout dirs.Layout, cfg *config.Config, logger *slog.Logger) (*search.Engine, error) {
	var engine *search.Engine
	opts := []search.Option{
		search.WithLogger(logger),
		search.WithPopularity(func(paths []string) map[string]float64 {
			return learning.Popularity(paths, engine.Catalog())
		}),
	}

	var err error
	switch {
	case layout.HasVectorIndex():
		engine, err = search.Open(layout, cfg.EngineConfig(), opts...)
	case layout.HasKeywordIndex():
		engine, err = search.OpenKeywordOnly(layout, cfg.EngineConfig(), opts...)
	default:
		return nil, fmt.Errorf("%w\nRun 'ifs-cloud-mcp index %s' first", search.ErrIndexNotBuilt, filepath.Base(layout.Root))
	}
	if err != nil {
		return nil, err
	}
	return engine, nil
}

// openCatalog opens the catalog of an indexed version. Unlike storage.Open
// it never creates a new database.
func openCatalog(layout dirs.Layout) (*storage.SQLiteStorage, error) {
	if _, err := os.Stat(layout.Catalog); err != nil {
		return nil, fmt.Errorf("%w: catalog %s", search.ErrIndexNotBuilt, layout.Catalog)
	}
	return storage.Open(layout.Catalog)
}

// buildIndexes analyses a version and writes its indexes, printing one line
// per build stage.
func buildIndexes(ctx context.Context, out io.Writer, layout dirs.Layout, workers int) (*search.BuildStats, error) {
	var mu sync.Mutex
	lastStage := ""
	progress := func(stage string, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if stage == lastStage {
			return
		}
		lastStage = stage
		if total > 0 {
			fmt.Fprintf(out, "  • %s (%d files)\n", stage, total)
		} else {
			fmt.Fprintf(out, "  • %s\n", stage)
		}
	}

	return search.Build(ctx, layout, search.BuildOptions{
		Workers:  workers,
		Progress: progress,
		Logger:   slog.Default(),
	})
}
