package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
)

// Index states reported by list and verify.
const (
	indexStateReady       = "indexed"
	indexStateKeywordOnly = "keyword-only"
	indexStateMissing     = "not indexed"
)

// versionSummary describes one imported version.
type versionSummary struct {
	Version string `json:"version"`
	Path    string `json:"path"`
	Files   int    `json:"files"`
	Bytes   int64  `json:"bytes"`
	Index   string `json:"index"`
	Default bool   `json:"default,omitempty"`
}

// NewListCmd creates the 'list' command for listing imported versions.
func NewListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List imported IFS Cloud versions",
		Long:    `Display every imported version with its source file count, size and index state.`,
		Example: `  ifs-cloud-mcp list
  ifs-cloud-mcp ls
  ifs-cloud-mcp list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// runList prints the imported versions.
func runList(out io.Writer, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	versions, err := dirs.ListVersions(dataDir)
	if err != nil {
		return err
	}

	summaries := make([]versionSummary, 0, len(versions))
	for _, v := range versions {
		s, err := summarizeVersion(dataDir, v)
		if err != nil {
			return err
		}
		s.Default = v == cfg.DefaultVersion
		summaries = append(summaries, s)
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(out, "No versions imported.")
		fmt.Fprintln(out, "Run 'ifs-cloud-mcp import <zip>' to import an IFS Cloud source archive.")
		return nil
	}

	fmt.Fprintf(out, "Imported versions (%d) in %s:\n\n", len(summaries), dataDir)
	for _, s := range summaries {
		marker := ""
		if s.Default {
			marker = " (default)"
		}
		fmt.Fprintf(out, "  %s%s\n", s.Version, marker)
		fmt.Fprintf(out, "    Files: %s (%s)\n", humanize.Comma(int64(s.Files)), humanize.Bytes(uint64(s.Bytes)))
		fmt.Fprintf(out, "    Index: %s\n", s.Index)
		fmt.Fprintln(out)
	}
	return nil
}

// summarizeVersion counts the source files of a version and reports its index state.
func summarizeVersion(dataDir, version string) (versionSummary, error) {
	layout := dirs.NewLayout(dirs.VersionDirectory(dataDir, version))
	s := versionSummary{
		Version: version,
		Path:    layout.Root,
		Index:   indexState(layout),
	}
	if !layout.HasSource() {
		return s, nil
	}

	err := filepath.WalkDir(layout.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !dirs.IsSupportedFile(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		s.Files++
		s.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return s, fmt.Errorf("failed to scan %s: %w", version, err)
	}
	return s, nil
}

func indexState(layout dirs.Layout) string {
	switch {
	case layout.HasKeywordIndex() && layout.HasVectorIndex():
		return indexStateReady
	case layout.HasKeywordIndex():
		return indexStateKeywordOnly
	default:
		return indexStateMissing
	}
}
