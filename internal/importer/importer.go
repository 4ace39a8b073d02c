/*
Package importer brings an IFS Cloud source archive into the data directory.

An archive is a ZIP file as delivered by IFS (usually with a single top-level
directory). Only supported source files are extracted; everything else in the
delivery is skipped.
*/
package importer

import (
	"archive/zip"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
)

// ErrVersionNotDetected is returned when no version can be derived from an archive.
var ErrVersionNotDetected = errors.New("could not detect IFS Cloud version from archive")

// ErrVersionExists is returned when importing over an existing version without Force.
var ErrVersionExists = errors.New("version already imported")

var versionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

// Options controls extraction.
type Options struct {
	// Version overrides version detection when non-empty.
	Version string

	// Force replaces an existing version directory.
	Force bool

	// Exclude holds doublestar patterns matched against archive-relative paths.
	Exclude []string
}

// Stats summarises an extraction.
type Stats struct {
	Files   int
	Bytes   int64
	Skipped int
}

// VersionFromZip detects the IFS Cloud version of an archive.
//
// A version.txt or VERSION entry (shallowest wins) takes precedence; otherwise
// the version is parsed from the archive file name, e.g. IFS_Cloud_25.1.0.zip.
func VersionFromZip(zipPath string) (string, error) {
	if _, err := os.Stat(zipPath); err != nil {
		return "", fmt.Errorf("zip file %s: %w", zipPath, err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open zip file: %w", err)
	}
	defer r.Close()

	if v, err := versionFromEntries(r.File); err != nil {
		return "", err
	} else if v != "" {
		return v, nil
	}

	base := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	if m := versionPattern.FindString(base); m != "" {
		return m, nil
	}

	return "", ErrVersionNotDetected
}

func versionFromEntries(files []*zip.File) (string, error) {
	var candidates []*zip.File
	for _, f := range files {
		name := path.Base(f.Name)
		if name == "version.txt" || name == "VERSION" {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return strings.Count(candidates[i].Name, "/") < strings.Count(candidates[j].Name, "/")
	})

	rc, err := candidates[0].Open()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", candidates[0].Name, err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	if scanner.Scan() {
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			return v, nil
		}
	}
	return "", scanner.Err()
}

// Extract writes the supported files of an archive into destDir.
func Extract(ctx context.Context, zipPath, destDir string, opts Options) (Stats, error) {
	var stats Stats

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, fmt.Errorf("zip file %s: %w", zipPath, err)
		}
		return stats, fmt.Errorf("failed to open zip file: %w", err)
	}
	defer r.Close()

	prefix := commonPrefix(r.File)

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if f.FileInfo().IsDir() {
			continue
		}

		rel := strings.TrimPrefix(f.Name, prefix)
		if rel == "" || !dirs.IsSupportedFile(rel) || excluded(rel, opts.Exclude) {
			stats.Skipped++
			continue
		}

		target, err := safeJoin(destDir, rel)
		if err != nil {
			return stats, err
		}

		n, err := extractFile(f, target)
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Bytes += n
	}

	return stats, nil
}

// Import detects the version of an archive and extracts it into the version's
// source directory under dataDir.
func Import(ctx context.Context, zipPath, dataDir string, opts Options) (string, Stats, error) {
	version := opts.Version
	if version == "" {
		v, err := VersionFromZip(zipPath)
		if err != nil {
			return "", Stats{}, err
		}
		version = v
	} else if _, err := os.Stat(zipPath); err != nil {
		return "", Stats{}, fmt.Errorf("zip file %s: %w", zipPath, err)
	}

	if err := dirs.SanitizeVersion(version); err != nil {
		return "", Stats{}, err
	}

	versionDir := dirs.VersionDirectory(dataDir, version)
	if _, err := os.Stat(versionDir); err == nil {
		if !opts.Force {
			return "", Stats{}, fmt.Errorf("%w: %s (use --force to replace)", ErrVersionExists, version)
		}
		if err := os.RemoveAll(versionDir); err != nil {
			return "", Stats{}, fmt.Errorf("failed to remove existing version: %w", err)
		}
	}

	layout := dirs.NewLayout(versionDir)
	if err := layout.Create(); err != nil {
		return "", Stats{}, fmt.Errorf("failed to create version directory: %w", err)
	}

	stats, err := Extract(ctx, zipPath, layout.Source, opts)
	if err != nil {
		os.RemoveAll(versionDir)
		return "", stats, err
	}

	return version, stats, nil
}

// commonPrefix returns the single top-level directory shared by every entry
// ("name/"), or "" when entries do not share one.
func commonPrefix(files []*zip.File) string {
	prefix := ""
	for _, f := range files {
		idx := strings.Index(f.Name, "/")
		if idx < 0 {
			return ""
		}
		top := f.Name[:idx+1]
		if prefix == "" {
			prefix = top
		} else if top != prefix {
			return ""
		}
	}
	return prefix
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// safeJoin joins rel onto dir and refuses paths that escape it.
func safeJoin(dir, rel string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(rel))
	cleanDir := filepath.Clean(dir) + string(os.PathSeparator)
	if !strings.HasPrefix(target, cleanDir) {
		return "", fmt.Errorf("illegal path in archive: %s", rel)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", target, err)
	}

	n, err := io.Copy(out, rc)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", target, err)
	}
	return n, nil
}
