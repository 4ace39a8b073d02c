package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/benchmark"
	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

type benchmarkOptions struct {
	queries    []string
	iterations int
	limit      int
	mode       string
	jsonOutput bool
}

// NewBenchmarkCmd creates the 'benchmark' command for search latency testing.
func NewBenchmarkCmd() *cobra.Command {
	var opts benchmarkOptions

	cmd := &cobra.Command{
		Use:     "benchmark [version]",
		Aliases: []string{"bench"},
		Short:   "Measure search latency of a version",
		Long: `Run a set of queries against a version several times and report the
latency distribution (min, mean, p50, p95, p99, max).

The query cache is cleared first: the first run of each query is cold and
later runs are served from the cache.`,
		Example: `  # Run the built-in IFS queries
  ifs-cloud-mcp benchmark 25.1.0

  # Own queries, keyword mode
  ifs-cloud-mcp benchmark 25.1.0 --query "customer order" --query Invoice_API --mode keyword

  # Output as JSON
  ifs-cloud-mcp benchmark 25.1.0 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd.Context(), cmd.OutOrStdout(), firstArg(args), opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.queries, "query", "q", nil, "Query to run (repeatable, default: built-in IFS queries)")
	cmd.Flags().IntVarP(&opts.iterations, "iterations", "n", benchmark.DefaultIterations, "Runs per query")
	cmd.Flags().IntVar(&opts.limit, "limit", search.DefaultLimit, "Results per search")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(search.ModeHybrid), "Search mode: hybrid, keyword or semantic")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// runBenchmark executes the latency benchmark.
func runBenchmark(ctx context.Context, out io.Writer, version string, opts benchmarkOptions) error {
	mode, err := search.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout, err := resolveLayout(cfg, version)
	if err != nil {
		return err
	}
	engine, err := openEngine(layout, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := benchmark.RunBenchmark(ctx, engine, benchmark.Options{
		Queries:    opts.queries,
		Iterations: opts.iterations,
		Limit:      opts.limit,
		Mode:       mode,
	})
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprint(out, benchmark.FormatResult(result))
	return nil
}
