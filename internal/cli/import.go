package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
	"github.com/khanglvm/ifs-cloud-mcp/internal/importer"
)

type importOptions struct {
	version string
	force   bool
	exclude []string
	noIndex bool
	workers int
}

// NewImportCmd creates the 'import' command for importing an IFS Cloud source archive.
func NewImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <zip>",
		Short: "Import an IFS Cloud source archive",
		Long: `Extract the supported source files of an IFS Cloud ZIP archive into a
new version directory and build its search indexes.

The version is read from a version.txt entry in the archive, or from the
archive file name (e.g. IFS_Cloud_25.1.0.zip). Use --version to set it.

Supported files: ` + supportedList(),
		Example: `  # Import and index
  ifs-cloud-mcp import IFS_Cloud_25.1.0.zip

  # Replace an existing version, skipping test sources
  ifs-cloud-mcp import delivery.zip --version 25.1.0 --force --exclude "**/test/**"

  # Extract only, index later with 'ifs-cloud-mcp index 25.1.0'
  ifs-cloud-mcp import delivery.zip --no-index`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.version, "version", "", "Version name (default: detected from the archive)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Replace the version if it was already imported")
	cmd.Flags().StringSliceVarP(&opts.exclude, "exclude", "e", nil, "Glob patterns of archive paths to skip (repeatable)")
	cmd.Flags().BoolVar(&opts.noIndex, "no-index", false, "Extract only, do not build indexes")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Analysis workers (default: number of CPUs)")

	return cmd
}

// runImport extracts zipPath into the data directory and indexes the result.
func runImport(ctx context.Context, out io.Writer, zipPath string, opts importOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	fmt.Fprintf(out, "Importing %s...\n", zipPath)
	version, stats, err := importer.Import(ctx, zipPath, dataDir, importer.Options{
		Version: opts.version,
		Force:   opts.force,
		Exclude: opts.exclude,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Extracted %s files (%s) for version %s\n",
		humanize.Comma(int64(stats.Files)), humanize.Bytes(uint64(stats.Bytes)), version)
	if stats.Skipped > 0 {
		fmt.Fprintf(out, "  Skipped %s unsupported or excluded entries\n", humanize.Comma(int64(stats.Skipped)))
	}

	if opts.noIndex {
		fmt.Fprintf(out, "\nRun 'ifs-cloud-mcp index %s' to build the search indexes.\n", version)
		return nil
	}

	layout := dirs.NewLayout(dirs.VersionDirectory(dataDir, version))
	fmt.Fprintln(out, "\nBuilding indexes...")
	built, err := buildIndexes(ctx, out, layout, opts.workers)
	if err != nil {
		return fmt.Errorf("failed to build indexes: %w\nRun 'ifs-cloud-mcp index %s' to retry", err, version)
	}
	printBuildStats(out, built)

	fmt.Fprintf(out, "\nServe it with: ifs-cloud-mcp serve --version %s\n", version)
	return nil
}

// supportedList renders the supported extensions for help text.
func supportedList() string {
	exts := make([]string, 0, len(dirs.SupportedExtensions()))
	for ext := range dirs.SupportedExtensions() {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, " ")
}
