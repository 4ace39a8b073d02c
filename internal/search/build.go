package search

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/khanglvm/ifs-cloud-mcp/internal/analysis"
	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
	"github.com/khanglvm/ifs-cloud-mcp/internal/ranking"
	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

// Build stages reported to the progress callback.
const (
	StageScan     = "scan"
	StageAnalyze  = "analyze"
	StageRank     = "rank"
	StageCatalog  = "catalog"
	StageKeyword  = "keyword"
	StageVectors  = "vectors"
	StageComplete = "complete"
)

// ProgressFunc receives build progress. It is called concurrently while
// files are analysed.
type ProgressFunc func(stage string, done, total int)

// BuildOptions configures Build.
type BuildOptions struct {
	Embedder Embedder
	Workers  int
	Progress ProgressFunc
	Logger   *slog.Logger
}

// BuildStats summarises a build.
type BuildStats struct {
	Files      int           `json:"files"`
	Failed     int           `json:"failed"`
	APIs       int           `json:"apis"`
	Components int           `json:"components"`
	Vectors    int           `json:"vectors"`
	Ranked     int           `json:"ranked"`
	Duration   time.Duration `json:"duration"`
}

type analyzed struct {
	info   analysis.FileInfo
	vector []float32
	ok     bool
}

// Build analyses the source tree of a version and (re)writes the catalog,
// ranking, keyword index, vector index metadata, and clears the query cache.
func Build(ctx context.Context, layout dirs.Layout, opts BuildOptions) (*BuildStats, error) {
	start := time.Now()

	if opts.Embedder == nil {
		opts.Embedder = NewHashingEmbedder(DefaultDimensions)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Logger = logging.WithOperation(opts.Logger, "build")
	progress := opts.Progress
	if progress == nil {
		progress = func(string, int, int) {}
	}

	if !layout.HasSource() {
		return nil, fmt.Errorf("source directory %s: %w", layout.Source, fs.ErrNotExist)
	}

	files, err := scanSource(ctx, layout.Source)
	if err != nil {
		return nil, err
	}
	progress(StageScan, len(files), len(files))

	items, err := analyzeAll(ctx, layout.Source, files, opts, progress)
	if err != nil {
		return nil, err
	}

	stats := &BuildStats{}
	infos := make([]analysis.FileInfo, 0, len(items))
	embeddings := make([]storage.Embedding, 0, len(items))
	components := make(map[string]struct{})
	for _, it := range items {
		if !it.ok {
			stats.Failed++
			continue
		}
		infos = append(infos, it.info)
		embeddings = append(embeddings, storage.Embedding{Path: it.info.Path, Vector: it.vector})
		components[it.info.Component] = struct{}{}
		stats.APIs += len(it.info.APIs)
	}
	stats.Files = len(infos)
	stats.Components = len(components)
	stats.Vectors = len(embeddings)

	scores := ranking.PageRank(ranking.BuildGraph(infos))
	if err := ranking.WriteJSONL(layout.Ranked, scores); err != nil {
		return nil, err
	}
	ranks := make(map[string]float64, len(scores))
	for _, s := range scores {
		ranks[s.Path] = s.Rank
	}
	stats.Ranked = len(scores)
	progress(StageRank, len(scores), len(scores))

	if err := writeCatalog(layout, infos, ranks, embeddings, opts.Embedder.Model()); err != nil {
		return nil, err
	}
	progress(StageCatalog, len(infos), len(infos))

	if err := writeKeywordIndex(ctx, layout, infos, progress); err != nil {
		return nil, err
	}

	if err := WriteVectorMeta(layout.Vectors, VectorMeta{
		Model:      opts.Embedder.Model(),
		Dimensions: opts.Embedder.Dimensions(),
		Count:      len(embeddings),
		BuiltAt:    time.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	progress(StageVectors, len(embeddings), len(embeddings))

	// Cached results refer to the previous index.
	if err := os.RemoveAll(layout.Cache); err != nil {
		opts.Logger.Warn("failed to clear query cache", logging.Err(err))
	}

	stats.Duration = time.Since(start)
	opts.Logger.Info("indexes built",
		logging.Path(layout.Root),
		logging.Count(stats.Files),
		slog.Int("failed", stats.Failed),
		logging.Duration(stats.Duration))
	progress(StageComplete, stats.Files, stats.Files)
	return stats, nil
}

// scanSource lists supported files under root as slash-separated relative
// paths, sorted.
func scanSource(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !dirs.IsSupportedFile(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func analyzeAll(ctx context.Context, root string, files []string, opts BuildOptions, progress ProgressFunc) ([]analyzed, error) {
	items := make([]analyzed, len(files))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				opts.Logger.Warn("failed to read source file", logging.Path(rel), logging.Err(err))
			} else {
				info := analysis.AnalyzeFile(rel, content)
				items[i] = analyzed{
					info:   info,
					vector: opts.Embedder.Embed(embeddingText(info, content)),
					ok:     true,
				}
			}

			progress(StageAnalyze, int(done.Add(1)), len(files))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func embeddingText(info analysis.FileInfo, content []byte) string {
	var b strings.Builder
	b.WriteString(info.Name)
	b.WriteByte(' ')
	b.WriteString(info.Entity)
	b.WriteByte(' ')
	b.WriteString(strings.Join(info.APIs, " "))
	b.WriteByte(' ')
	b.Write(content)
	return b.String()
}

func writeCatalog(layout dirs.Layout, infos []analysis.FileInfo, ranks map[string]float64, embeddings []storage.Embedding, model string) error {
	catalog, err := storage.Open(layout.Catalog)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer catalog.Close()

	if err := catalog.ReplaceFiles(infos, ranks); err != nil {
		return err
	}
	if err := catalog.SaveEmbeddings(model, embeddings); err != nil {
		return err
	}
	return nil
}

func writeKeywordIndex(ctx context.Context, layout dirs.Layout, infos []analysis.FileInfo, progress ProgressFunc) error {
	if err := os.RemoveAll(layout.Keyword); err != nil {
		return fmt.Errorf("failed to remove old keyword index: %w", err)
	}

	indexer, err := NewIndexerWithPath(layout.Keyword)
	if err != nil {
		return err
	}
	defer indexer.Close()

	for start := 0; start < len(infos); start += indexBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+indexBatchSize, len(infos))
		docs := make([]Document, 0, end-start)
		for _, info := range infos[start:end] {
			content, err := os.ReadFile(filepath.Join(layout.Source, filepath.FromSlash(info.Path)))
			if err != nil {
				continue
			}
			docs = append(docs, documentFor(info, string(content)))
		}

		if err := indexer.IndexDocuments(docs); err != nil {
			return err
		}
		progress(StageKeyword, end, len(infos))
	}

	return nil
}

func documentFor(info analysis.FileInfo, content string) Document {
	keywords := Tokenize(info.Name + " " + info.Entity + " " + strings.Join(info.APIs, " "))
	return Document{
		Path:      info.Path,
		Name:      info.Name,
		Type:      info.Type,
		Component: info.Component,
		Entity:    info.Entity,
		APIs:      info.APIs,
		Keywords:  strings.Join(keywords, " "),
		Content:   content,
	}
}
