package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

type searchOptions struct {
	limit      int
	fileType   string
	component  string
	mode       string
	jsonOutput bool
}

// NewSearchCmd creates the 'search' command for querying a version from the terminal.
func NewSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <version> <query>",
		Short: "Search the source of an imported version",
		Long: `Run the same hybrid search the MCP server offers against an imported version.

Modes:
  hybrid   - Fuse keyword (BM25) and semantic results (default)
  keyword  - BM25 only
  semantic - Vector similarity only`,
		Example: `  ifs-cloud-mcp search 25.1.0 "customer order release"
  ifs-cloud-mcp search 25.1.0 Customer_Order_API --mode keyword --type plsql
  ifs-cloud-mcp search 25.1.0 "invoice posting" --component invoic --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), args[0], strings.Join(args[1:], " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum results (default from config)")
	cmd.Flags().StringVar(&opts.fileType, "type", "", "Only this file type, e.g. plsql or entity")
	cmd.Flags().StringVar(&opts.component, "component", "", "Only this component, e.g. order")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(search.ModeHybrid), "Search mode: hybrid, keyword or semantic")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// runSearch opens the engine of a version, runs one query and prints the results.
func runSearch(ctx context.Context, out io.Writer, version, text string, opts searchOptions) error {
	mode, err := search.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	if opts.limit < 0 || opts.limit > search.MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d", search.MaxLimit)
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

	resp, err := engine.Search(ctx, search.Query{
		Text:  text,
		Limit: opts.limit,
		Mode:  mode,
		Filters: search.Filters{
			FileType:  opts.fileType,
			Component: opts.component,
		},
	})
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printResults(out, resp)
	return nil
}

var (
	pathColor  = color.New(color.FgCyan, color.Bold)
	metaColor  = color.New(color.FgHiBlack)
	scoreColor = color.New(color.FgYellow)
)

func printResults(out io.Writer, resp *search.Response) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(out, "No results for %q.\n", resp.Query)
		return
	}

	for i, r := range resp.Results {
		fmt.Fprintf(out, "%2d. %s %s\n", i+1, pathColor.Sprint(r.Path), scoreColor.Sprintf("%.3f", r.Score))
		fmt.Fprintf(out, "    %s\n", metaColor.Sprintf("%s · %s · %s", r.Name, r.Type, r.Component))
		if r.Snippet != "" {
			fmt.Fprintf(out, "    %s\n", strings.TrimSpace(r.Snippet))
		}
	}

	cached := ""
	if resp.CacheHit {
		cached = ", cached"
	}
	fmt.Fprintf(out, "\n%d results (%s, %s%s)\n", len(resp.Results), resp.Mode, resp.Took.Round(time.Microsecond), cached)
}
