package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

// NewIndexCmd creates the 'index' command for rebuilding the indexes of a version.
func NewIndexCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "index [version]",
		Short: "Build the search indexes of an imported version",
		Long: `Analyse the extracted source of a version and (re)build its catalog,
PageRank ranking, BM25 keyword index and vector index.

Existing indexes are replaced and the query cache is cleared.`,
		Example: `  ifs-cloud-mcp index 25.1.0

  # Use the defaultVersion from ~/.ifs-cloud-mcp.json
  ifs-cloud-mcp index`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd.OutOrStdout(), firstArg(args), workers)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Analysis workers (default: number of CPUs)")

	return cmd
}

// runIndex rebuilds every index of a version.
func runIndex(ctx context.Context, out io.Writer, version string, workers int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout, err := resolveLayout(cfg, version)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Indexing %s...\n", layout.Root)
	stats, err := buildIndexes(ctx, out, layout, workers)
	if err != nil {
		return fmt.Errorf("failed to build indexes: %w", err)
	}
	printBuildStats(out, stats)
	return nil
}

func printBuildStats(out io.Writer, stats *search.BuildStats) {
	fmt.Fprintf(out, "✓ Indexed %s files in %s components (%s APIs)\n",
		humanize.Comma(int64(stats.Files)), humanize.Comma(int64(stats.Components)), humanize.Comma(int64(stats.APIs)))
	if stats.Failed > 0 {
		fmt.Fprintf(out, "  %d files could not be analysed\n", stats.Failed)
	}
	fmt.Fprintf(out, "  Vectors: %s, ranked: %s, took %s\n",
		humanize.Comma(int64(stats.Vectors)), humanize.Comma(int64(stats.Ranked)), stats.Duration.Round(time.Millisecond))
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
