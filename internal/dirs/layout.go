package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideSource is returned for paths that escape the source directory.
var ErrOutsideSource = errors.New("path is outside the source directory")

// Layout holds the paths that make up a version directory.
type Layout struct {
	Root     string
	Source   string
	Analysis string
	Catalog  string
	Keyword  string
	Vectors  string
	Cache    string
	Ranked   string
}

// NewLayout returns the layout rooted at a version directory.
func NewLayout(root string) Layout {
	analysis := filepath.Join(root, "analysis")
	return Layout{
		Root:     root,
		Source:   filepath.Join(root, "source"),
		Analysis: analysis,
		Catalog:  filepath.Join(analysis, "catalog.db"),
		Keyword:  filepath.Join(root, "bm25s"),
		Vectors:  filepath.Join(root, "faiss"),
		Cache:    filepath.Join(root, "cache"),
		Ranked:   filepath.Join(root, "ranked.jsonl"),
	}
}

// Create makes the directories of the layout.
func (l Layout) Create() error {
	for _, dir := range []string{l.Root, l.Source, l.Analysis} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// HasSource reports whether the source directory exists.
func (l Layout) HasSource() bool { return isDir(l.Source) }

// HasKeywordIndex reports whether the keyword index directory exists.
func (l Layout) HasKeywordIndex() bool { return isDir(l.Keyword) }

// HasVectorIndex reports whether the vector index directory exists.
func (l Layout) HasVectorIndex() bool { return isDir(l.Vectors) }

// HasRanking reports whether ranked.jsonl exists.
func (l Layout) HasRanking() bool {
	info, err := os.Stat(l.Ranked)
	return err == nil && !info.IsDir()
}

// SourceFile resolves a source-relative path to an absolute file path,
// rejecting absolute paths and any path that escapes Source.
func (l Layout) SourceFile(rel string) (string, error) {
	rel = filepath.FromSlash(strings.ReplaceAll(rel, "\\", "/"))
	if rel == "" || filepath.IsAbs(rel) {
		return "", ErrOutsideSource
	}
	full := filepath.Join(l.Source, rel)
	back, err := filepath.Rel(l.Source, full)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) || back == "." {
		return "", ErrOutsideSource
	}
	return full, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
