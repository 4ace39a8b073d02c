package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
)

// NewRemoveCmd creates the 'remove' command for deleting an imported version.
func NewRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <version>",
		Aliases: []string{"rm"},
		Short:   "Remove an imported version",
		Long:    `Delete an imported version together with its source, indexes and usage history.`,
		Example: `  ifs-cloud-mcp remove 25.1.0
  ifs-cloud-mcp rm 25.1.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd.OutOrStdout(), args[0])
		},
	}

	return cmd
}

// runRemove deletes a version directory.
func runRemove(out io.Writer, version string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}

	dir, err := dirs.ResolveVersion(dataDir, version)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove version %s: %w", version, err)
	}

	fmt.Fprintf(out, "✓ Removed version '%s'\n", version)
	if cfg.DefaultVersion == version {
		fmt.Fprintln(out, "  Note: it is still the defaultVersion in ~/.ifs-cloud-mcp.json")
	}
	return nil
}
