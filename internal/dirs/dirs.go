/*
Package dirs resolves the on-disk layout used by ifs-cloud-mcp.

Every imported IFS Cloud version lives in its own directory:

	<data>/versions/<version>/
	    source/        extracted source files
	    analysis/      catalog.db (SQLite)
	    bm25s/         keyword index (bleve)
	    faiss/         vector index metadata
	    cache/         query cache (badger)
	    ranked.jsonl   PageRank scores
*/
package dirs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// AppDirName is the base name of the default data directory.
const AppDirName = "ifs_cloud_mcp_server"

// EnvDataDir overrides the data directory when set.
const EnvDataDir = "IFS_CLOUD_MCP_DATA_DIR"

// ErrVersionNotFound is returned when a version directory does not exist.
var ErrVersionNotFound = errors.New("version not found")

// supportedExtensions lists the IFS Cloud source file types that are imported and indexed.
var supportedExtensions = []string{
	".plsql",
	".plsvc",
	".entity",
	".enumeration",
	".client",
	".projection",
	".fragment",
	".storage",
	".views",
	".sql",
	".cdb",
	".ins",
	".upg",
	".cre",
}

// DataDirectory returns the root data directory.
//
// IFS_CLOUD_MCP_DATA_DIR wins when set. Otherwise the platform user data
// directory is used:
//   - Linux:   $XDG_DATA_HOME/ifs_cloud_mcp_server (default ~/.local/share)
//   - macOS:   ~/Library/Application Support/ifs_cloud_mcp_server
//   - Windows: %APPDATA%\ifs_cloud_mcp_server
func DataDirectory() (string, error) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return filepath.Clean(dir), nil
	}

	base, err := userDataBase(runtime.GOOS)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppDirName), nil
}

func userDataBase(goos string) (string, error) {
	switch goos {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData, nil
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return xdg, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if goos == "windows" {
		return filepath.Join(home, "AppData", "Roaming"), nil
	}
	return filepath.Join(home, ".local", "share"), nil
}

// VersionsDirectory returns the directory holding all imported versions.
func VersionsDirectory(dataDir string) string {
	return filepath.Join(dataDir, "versions")
}

// VersionDirectory returns the directory for a single version.
func VersionDirectory(dataDir, version string) string {
	return filepath.Join(VersionsDirectory(dataDir), version)
}

// ResolveVersion returns the directory of an existing version.
func ResolveVersion(dataDir, version string) (string, error) {
	if err := SanitizeVersion(version); err != nil {
		return "", err
	}
	dir := VersionDirectory(dataDir, version)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}
	return dir, nil
}

// SanitizeVersion rejects version names that cannot be used as a single directory name.
func SanitizeVersion(version string) error {
	if strings.TrimSpace(version) == "" {
		return fmt.Errorf("version name cannot be empty")
	}
	if version == "." || strings.Contains(version, "..") || strings.ContainsAny(version, `/\:`) {
		return fmt.Errorf("invalid version name %q", version)
	}
	return nil
}

// ListVersions returns the names of all imported versions, sorted.
// A missing versions directory yields an empty list.
func ListVersions(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(VersionsDirectory(dataDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read versions directory: %w", err)
	}

	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// SupportedExtensions returns a fresh set of supported file extensions (with leading dot).
func SupportedExtensions() map[string]struct{} {
	set := make(map[string]struct{}, len(supportedExtensions))
	for _, ext := range supportedExtensions {
		set[ext] = struct{}{}
	}
	return set
}

// IsSupportedFile reports whether the file extension is one we index.
func IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, e := range supportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
