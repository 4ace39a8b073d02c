package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

// Export formats.
const (
	formatJSON  = "json"
	formatJSONL = "jsonl"
)

// NewExportIndexCmd creates the export-index command.
func NewExportIndexCmd() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export-index [version]",
		Short: "Export the file catalog of a version for grep/jq",
		Long: `Write the analysed file catalog of a version (path, component, type, APIs,
references, PageRank) to a file for offline grep/jq searching.

Default output: <version dir>/catalog.jsonl
Default format: JSONL (one file per line)`,
		Example: `  # Export to the version directory
  ifs-cloud-mcp export-index 25.1.0

  # Export as a JSON array
  ifs-cloud-mcp export-index 25.1.0 --format json --output ./catalog.json

Grep usage examples:
  # Files of the ORDER component
  grep '"component":"order"' catalog.jsonl | jq -r '.path'

  # Where is an API defined
  jq -r 'select(.apis | index("Customer_Order_API")) | .path' catalog.jsonl

  # Most central files
  jq -s -r 'sort_by(-.rank) | .[:10][] | .path' catalog.jsonl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportIndex(cmd.OutOrStdout(), firstArg(args), format, output)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatJSONL, "Output format: json or jsonl")
	cmd.Flags().StringVar(&output, "output", "", "Output path (default: <version dir>/catalog.jsonl)")

	return cmd
}

// runExportIndex executes the export-index command.
func runExportIndex(out io.Writer, version, format, output string) error {
	if format != formatJSON && format != formatJSONL {
		return fmt.Errorf("unsupported format %q (expected json or jsonl)", format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout, err := resolveLayout(cfg, version)
	if err != nil {
		return err
	}

	if output == "" {
		output = filepath.Join(layout.Root, "catalog."+format)
	}

	// Acquire file lock to prevent concurrent writes
	lockFile, err := acquireFileLock(output)
	if err != nil {
		return fmt.Errorf("failed to acquire file lock: %w", err)
	}
	defer releaseFileLock(lockFile)

	catalog, err := openCatalog(layout)
	if err != nil {
		return err
	}
	defer catalog.Close()

	files, err := catalog.ListFiles()
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	if err := writeIndex(files, output, format); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Exported %d files to %s\n", len(files), output)
	return nil
}

// writeIndex writes catalog records to a file.
func writeIndex(files []storage.FileRecord, path, format string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)

	if format == formatJSON {
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(files); err != nil {
			return fmt.Errorf("failed to encode files: %w", err)
		}
		return nil
	}

	for _, f := range files {
		if err := encoder.Encode(f); err != nil {
			return fmt.Errorf("failed to encode file: %w", err)
		}
	}
	return nil
}

// acquireFileLock acquires an exclusive lock on the index file.
func acquireFileLock(path string) (*os.File, error) {
	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	// Non-blocking: a second export fails instead of waiting.
	err = unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire lock (another export in progress?): %w", err)
	}

	return lockFile, nil
}

// releaseFileLock releases the file lock and removes the lock file.
func releaseFileLock(lockFile *os.File) error {
	if lockFile == nil {
		return nil
	}

	lockPath := lockFile.Name()

	unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
	lockFile.Close()

	return os.Remove(lockPath)
}
