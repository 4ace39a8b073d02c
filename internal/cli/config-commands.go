package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/config"
	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
)

// NewConfigCmd creates the 'config' command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ~/.ifs-cloud-mcp.json",
		Long: `Create, inspect and update the ifs-cloud-mcp settings file.

Settings: dataDir, defaultVersion, logLevel, transport (type, host, port)
and search (fusion weights, cache TTL, default limit).

IFS_CLOUD_MCP_DATA_DIR and IFS_CLOUD_MCP_LOG_LEVEL override the file.`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigUseCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	var dataDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Example: `  ifs-cloud-mcp config init
  ifs-cloud-mcp config init --data-dir /srv/ifs --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetDefaultConfigPath()
			if err != nil {
				return err
			}
			return runConfigInit(cmd.OutOrStdout(), path, dataDir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file (a .bak copy is kept)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory to store versions in")

	return cmd
}

func runConfigInit(out io.Writer, path, dataDir string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	cfg := config.NewConfig()
	cfg.DataDir = dataDir
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Wrote %s\n", path)
	return nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Long:  `Print the settings after defaults and environment overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

func runConfigShow(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DataDir == "" {
		if cfg.DataDir, err = dirs.DataDirectory(); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetDefaultConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "use <version>",
		Short:   "Set the default version",
		Long:    `Store defaultVersion so that serve, search and the other commands can omit the version.`,
		Example: `  ifs-cloud-mcp config use 25.1.0`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigUse(cmd.OutOrStdout(), args[0])
		},
	}
}

// runConfigUse checks that the version exists and saves it as defaultVersion.
func runConfigUse(out io.Writer, version string) error {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		if !config.IsNotFound(err) {
			return err
		}
		cfg = config.NewConfig()
	}

	// Resolve against the effective data directory, env override included.
	effective := *cfg
	effective.ApplyEnv(os.LookupEnv)
	dataDir, err := effective.ResolveDataDir()
	if err != nil {
		return err
	}
	if _, err := dirs.ResolveVersion(dataDir, version); err != nil {
		return err
	}

	cfg.DefaultVersion = version
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Default version set to %s\n", version)
	return nil
}
