package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/config"
	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
	"github.com/khanglvm/ifs-cloud-mcp/internal/ranking"
	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

// errVerifyFailed is returned when at least one check fails.
var errVerifyFailed = errors.New("verification failed")

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
)

// NewVerifyCmd creates the 'verify' command for checking configuration and indexes.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [version]",
		Short: "Verify configuration and version indexes",
		Long: `Check that the configuration loads and that imported versions have a
source directory, catalog, ranking, keyword index and vector index.

Without a version argument every imported version is checked.`,
		Example: `  ifs-cloud-mcp verify
  ifs-cloud-mcp verify 25.1.0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.OutOrStdout(), firstArg(args))
		},
	}

	return cmd
}

// runVerify prints one line per check and fails if any check failed.
func runVerify(out io.Writer, version string) error {
	configPath, err := config.GetDefaultConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	fmt.Fprintf(out, "%s Config file: %s\n", okMark, configPath)

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Data directory: %s\n", okMark, dataDir)

	versions := []string{version}
	if version == "" {
		if versions, err = dirs.ListVersions(dataDir); err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Fprintln(out, "  No versions imported.")
			return nil
		}
	}

	failed := false
	for _, v := range versions {
		fmt.Fprintf(out, "\nVersion %s\n", v)
		dir, err := dirs.ResolveVersion(dataDir, v)
		if err != nil {
			fmt.Fprintf(out, "  %s %v\n", failMark, err)
			failed = true
			continue
		}
		for _, c := range verifyLayout(dirs.NewLayout(dir)) {
			if c.err != nil {
				fmt.Fprintf(out, "  %s %s: %v\n", failMark, c.name, c.err)
				failed = true
				continue
			}
			fmt.Fprintf(out, "  %s %s: %s\n", okMark, c.name, c.detail)
		}
	}

	if failed {
		return errVerifyFailed
	}
	return nil
}

type check struct {
	name   string
	detail string
	err    error
}

// verifyLayout inspects each artefact of a version directory.
func verifyLayout(layout dirs.Layout) []check {
	var checks []check

	if layout.HasSource() {
		checks = append(checks, check{name: "source", detail: layout.Source})
	} else {
		checks = append(checks, check{name: "source", err: errors.New("missing source directory")})
	}

	c := check{name: "catalog"}
	if catalog, err := openCatalog(layout); err != nil {
		c.err = err
	} else {
		n, err := catalog.CountFiles()
		catalog.Close()
		c.detail, c.err = fmt.Sprintf("%d files", n), err
	}
	checks = append(checks, c)

	c = check{name: "ranking"}
	if ranks, err := ranking.ReadJSONL(layout.Ranked); err != nil {
		c.err = err
	} else {
		c.detail = fmt.Sprintf("%d ranked files", len(ranks))
	}
	checks = append(checks, c)

	c = check{name: "keyword index"}
	if idx, err := search.OpenIndexer(layout.Keyword); err != nil {
		c.err = err
	} else {
		n, err := idx.Count()
		idx.Close()
		c.detail, c.err = fmt.Sprintf("%d documents", n), err
	}
	checks = append(checks, c)

	c = check{name: "vector index"}
	if meta, err := search.ReadVectorMeta(layout.Vectors); err != nil {
		c.err = err
	} else {
		c.detail = fmt.Sprintf("%d vectors, model %s", meta.Count, meta.Model)
	}
	checks = append(checks, c)

	return checks
}
