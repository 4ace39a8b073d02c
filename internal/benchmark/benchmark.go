/*
Package benchmark measures search latency against an imported version.

Each query is run a number of times through the search engine. The first
run of a query after the cache is cleared is cold; later runs are normally
answered from the query cache, so both paths show up in the percentiles.
*/
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

// DefaultIterations is how often each query runs.
const DefaultIterations = 5

// DefaultQueries are typical IFS Cloud lookups.
var DefaultQueries = []string{
	"customer order release",
	"Customer_Order_API",
	"invoice posting",
	"purchase requisition approval",
	"inventory part availability",
	"fnd session user",
	"shop order operation",
	"project activity cost",
}

// Searcher is what a benchmark runs against. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
}

type cacheClearer interface {
	ClearCache() error
}

// Options controls a benchmark run.
type Options struct {
	Queries    []string
	Iterations int
	Limit      int
	Mode       search.Mode
}

// QueryStats summarises the runs of one query.
type QueryStats struct {
	Query   string        `json:"query"`
	Results int           `json:"results"`
	Cold    time.Duration `json:"cold"`
	Mean    time.Duration `json:"mean"`
	Errors  int           `json:"errors"`
}

// BenchmarkResult contains the latency distribution of a run.
type BenchmarkResult struct {
	Mode       search.Mode   `json:"mode"`
	Queries    int           `json:"queries"`
	Iterations int           `json:"iterations"`
	Searches   int           `json:"searches"`
	CacheHits  int           `json:"cacheHits"`
	Errors     int           `json:"errors"`
	Total      time.Duration `json:"total"`
	Min        time.Duration `json:"min"`
	Max        time.Duration `json:"max"`
	Mean       time.Duration `json:"mean"`
	P50        time.Duration `json:"p50"`
	P95        time.Duration `json:"p95"`
	P99        time.Duration `json:"p99"`
	PerQuery   []QueryStats  `json:"perQuery"`
}

// RunBenchmark runs every query opts.Iterations times and collects latencies.
// The query cache is cleared first when the searcher has one.
func RunBenchmark(ctx context.Context, s Searcher, opts Options) (*BenchmarkResult, error) {
	if len(opts.Queries) == 0 {
		opts.Queries = DefaultQueries
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.Mode == "" {
		opts.Mode = search.ModeHybrid
	}

	if c, ok := s.(cacheClearer); ok {
		if err := c.ClearCache(); err != nil {
			return nil, fmt.Errorf("failed to clear query cache: %w", err)
		}
	}

	result := &BenchmarkResult{
		Mode:       opts.Mode,
		Queries:    len(opts.Queries),
		Iterations: opts.Iterations,
	}

	var latencies []time.Duration
	start := time.Now()

	for _, text := range opts.Queries {
		qs := QueryStats{Query: text}
		var sum time.Duration
		runs := 0

		for i := 0; i < opts.Iterations; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			t0 := time.Now()
			resp, err := s.Search(ctx, search.Query{Text: text, Limit: opts.Limit, Mode: opts.Mode})
			elapsed := time.Since(t0)

			result.Searches++
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil, err
				}
				qs.Errors++
				result.Errors++
				continue
			}

			if i == 0 {
				qs.Cold = elapsed
			}
			if resp.CacheHit {
				result.CacheHits++
			}
			qs.Results = len(resp.Results)
			sum += elapsed
			runs++
			latencies = append(latencies, elapsed)
		}

		if runs > 0 {
			qs.Mean = sum / time.Duration(runs)
		}
		result.PerQuery = append(result.PerQuery, qs)
	}

	result.Total = time.Since(start)
	summarize(result, latencies)
	return result, nil
}

func summarize(result *BenchmarkResult, latencies []time.Duration) {
	if len(latencies) == 0 {
		return
	}

	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	result.Min = sorted[0]
	result.Max = sorted[len(sorted)-1]
	result.Mean = sum / time.Duration(len(sorted))
	result.P50 = percentile(sorted, 50)
	result.P95 = percentile(sorted, 95)
	result.P99 = percentile(sorted, 99)
}

// percentile returns the nearest-rank percentile of sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p/100*float64(len(sorted)) + 0.999999)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// FormatResult formats the benchmark result for display.
func FormatResult(result *BenchmarkResult) string {
	var sb strings.Builder

	sb.WriteString("╔══════════════════════════════════════════════════════════════╗\n")
	sb.WriteString("║               SEARCH LATENCY BENCHMARK RESULTS               ║\n")
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString(fmt.Sprintf("║  Mode:       %-48s║\n", result.Mode))
	sb.WriteString(fmt.Sprintf("║  Searches:   %-48s║\n", fmt.Sprintf("%s (%d queries x %d)",
		humanize.Comma(int64(result.Searches)), result.Queries, result.Iterations)))
	sb.WriteString(fmt.Sprintf("║  Cache hits: %-48s║\n", humanize.Comma(int64(result.CacheHits))))
	sb.WriteString(fmt.Sprintf("║  Errors:     %-48s║\n", humanize.Comma(int64(result.Errors))))
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString(fmt.Sprintf("║  Min:  %-54s║\n", round(result.Min)))
	sb.WriteString(fmt.Sprintf("║  Mean: %-54s║\n", round(result.Mean)))
	sb.WriteString(fmt.Sprintf("║  P50:  %-54s║\n", round(result.P50)))
	sb.WriteString(fmt.Sprintf("║  P95:  %-54s║\n", round(result.P95)))
	sb.WriteString(fmt.Sprintf("║  P99:  %-54s║\n", round(result.P99)))
	sb.WriteString(fmt.Sprintf("║  Max:  %-54s║\n", round(result.Max)))
	sb.WriteString("╚══════════════════════════════════════════════════════════════╝\n")

	if len(result.PerQuery) > 0 {
		sb.WriteString("\nPer query (cold / mean / results):\n")
		for _, q := range result.PerQuery {
			line := fmt.Sprintf("  %-36s %10s %10s %4d", truncate(q.Query, 36), round(q.Cold), round(q.Mean), q.Results)
			if q.Errors > 0 {
				line += fmt.Sprintf("  (%d errors)", q.Errors)
			}
			sb.WriteString(line + "\n")
		}
	}

	return sb.String()
}

func round(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
