// Package ranking computes file importance over the API reference graph.
package ranking

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/khanglvm/ifs-cloud-mcp/internal/analysis"
)

const (
	Damping       = 0.85
	MaxIterations = 50
	Tolerance     = 1e-6
)

// Score is the normalised rank of a file.
type Score struct {
	Path string  `json:"path"`
	Rank float64 `json:"rank"`
}

// Graph maps a file path to the files it references.
type Graph map[string][]string

// BuildGraph links each file to the files defining the APIs it references.
// Names match case-insensitively, as PL/SQL identifiers do.
func BuildGraph(files []analysis.FileInfo) Graph {
	definers := make(map[string][]string)
	for _, f := range files {
		for _, api := range f.APIs {
			key := strings.ToUpper(api)
			definers[key] = append(definers[key], f.Path)
		}
	}

	g := make(Graph, len(files))
	for _, f := range files {
		seen := make(map[string]struct{})
		var out []string
		for _, ref := range f.References {
			for _, target := range definers[strings.ToUpper(ref)] {
				if target == f.Path {
					continue
				}
				if _, ok := seen[target]; ok {
					continue
				}
				seen[target] = struct{}{}
				out = append(out, target)
			}
		}
		sort.Strings(out)
		g[f.Path] = out
	}
	return g
}

// PageRank runs PageRank over g and returns scores normalised to [0,1],
// sorted by rank descending then path.
func PageRank(g Graph) []Score {
	nodes := make([]string, 0, len(g))
	seen := make(map[string]struct{}, len(g))
	add := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			nodes = append(nodes, n)
		}
	}
	for n, targets := range g {
		add(n)
		for _, t := range targets {
			add(t)
		}
	}
	if len(nodes) == 0 {
		return nil
	}
	sort.Strings(nodes)

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	n := float64(len(nodes))
	rank := make([]float64, len(nodes))
	for i := range rank {
		rank[i] = 1 / n
	}

	for iter := 0; iter < MaxIterations; iter++ {
		next := make([]float64, len(nodes))
		dangling := 0.0
		for i, node := range nodes {
			targets := g[node]
			if len(targets) == 0 {
				dangling += rank[i]
				continue
			}
			share := rank[i] / float64(len(targets))
			for _, t := range targets {
				next[index[t]] += share
			}
		}

		delta := 0.0
		for i := range next {
			next[i] = (1-Damping)/n + Damping*(next[i]+dangling/n)
			delta += math.Abs(next[i] - rank[i])
		}
		rank = next
		if delta < Tolerance {
			break
		}
	}

	return normalize(nodes, rank)
}

func normalize(nodes []string, rank []float64) []Score {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range rank {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}

	scores := make([]Score, len(nodes))
	for i, node := range nodes {
		v := 1.0
		if hi > lo {
			v = (rank[i] - lo) / (hi - lo)
		}
		scores[i] = Score{Path: node, Rank: v}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Rank != scores[j].Rank {
			return scores[i].Rank > scores[j].Rank
		}
		return scores[i].Path < scores[j].Path
	})
	return scores
}

// WriteJSONL writes scores one JSON object per line, atomically.
func WriteJSONL(path string, scores []Score) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, s := range scores {
		if err := enc.Encode(s); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("failed to encode rank: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write ranks: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close ranks: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadJSONL reads ranked.jsonl into a path -> rank map.
func ReadJSONL(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ranks: %w", err)
	}
	defer f.Close()

	ranks := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var s Score
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			return nil, fmt.Errorf("invalid rank on line %d: %w", line, err)
		}
		ranks[s.Path] = s.Rank
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ranks: %w", err)
	}
	return ranks, nil
}
