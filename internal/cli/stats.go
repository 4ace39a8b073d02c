package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/learning"
	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

type statsOptions struct {
	top        int
	pruneDays  int
	jsonOutput bool
}

// statsReport is the JSON form of the stats output.
type statsReport struct {
	Version string               `json:"version"`
	Search  *storage.SearchStats `json:"search"`
	Popular []learning.FileScore `json:"popular"`
}

// NewStatsCmd creates the 'stats' command for search and usage statistics.
func NewStatsCmd() *cobra.Command {
	var opts statsOptions

	cmd := &cobra.Command{
		Use:   "stats [version]",
		Short: "Show search and file usage statistics",
		Long: `Display what the MCP server recorded for a version: searches by mode,
cache hit rate, the most read files and their popularity scores.

Popularity combines read frequency over the last 7 days (70%) with recency
(30%, 24h half-life). It boosts search results of frequently read files.`,
		Example: `  ifs-cloud-mcp stats 25.1.0
  ifs-cloud-mcp stats 25.1.0 --top 20 --json

  # Drop history older than 90 days
  ifs-cloud-mcp stats 25.1.0 --prune 90`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.OutOrStdout(), firstArg(args), opts)
		},
	}

	cmd.Flags().IntVar(&opts.top, "top", 10, "Number of files to show")
	cmd.Flags().IntVar(&opts.pruneDays, "prune", 0, "Delete history older than this many days first")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// runStats prints the recorded history of a version.
func runStats(out io.Writer, version string, opts statsOptions) error {
	if opts.pruneDays < 0 {
		return fmt.Errorf("--prune must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout, err := resolveLayout(cfg, version)
	if err != nil {
		return err
	}
	catalog, err := openCatalog(layout)
	if err != nil {
		return err
	}
	defer catalog.Close()

	if opts.pruneDays > 0 {
		if err := catalog.Cleanup(time.Duration(opts.pruneDays) * 24 * time.Hour); err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		fmt.Fprintf(out, "✓ Pruned history older than %d days\n\n", opts.pruneDays)
	}

	stats, err := catalog.SearchStats(opts.top)
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}
	popular := learning.RankFiles(catalog)
	if opts.top > 0 && len(popular) > opts.top {
		popular = popular[:opts.top]
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statsReport{Version: filepath.Base(layout.Root), Search: stats, Popular: popular})
	}

	fmt.Fprintf(out, "Searches:       %s (%s unique)\n", humanize.Comma(int64(stats.TotalSearches)), humanize.Comma(int64(stats.UniqueQueries)))
	if stats.TotalSearches > 0 {
		fmt.Fprintf(out, "Cache hits:     %s (%.0f%%)\n", humanize.Comma(int64(stats.CacheHits)),
			100*float64(stats.CacheHits)/float64(stats.TotalSearches))
		fmt.Fprintf(out, "Avg results:    %.1f\n", stats.AvgResults)
		fmt.Fprintf(out, "Avg duration:   %s\n", stats.AvgDuration.Round(time.Millisecond))
		modes := make([]string, 0, len(stats.ByMode))
		for mode := range stats.ByMode {
			modes = append(modes, mode)
		}
		sort.Strings(modes)
		for _, mode := range modes {
			fmt.Fprintf(out, "  %-12s %s\n", mode, humanize.Comma(int64(stats.ByMode[mode])))
		}
	}
	fmt.Fprintf(out, "File reads:     %s\n", humanize.Comma(int64(stats.TotalReads)))

	if len(stats.TopFiles) > 0 {
		fmt.Fprintln(out, "\nMost read files:")
		for _, f := range stats.TopFiles {
			fmt.Fprintf(out, "  %5d  %s\n", f.Count, f.Path)
		}
	}
	if len(popular) > 0 {
		fmt.Fprintln(out, "\nPopularity (last 7 days):")
		for _, f := range popular {
			fmt.Fprintf(out, "  %.3f  %s\n", f.Score, f.Path)
		}
	}
	return nil
}
