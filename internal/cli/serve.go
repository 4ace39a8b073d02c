package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
	"github.com/khanglvm/ifs-cloud-mcp/internal/mcp"
	"github.com/khanglvm/ifs-cloud-mcp/internal/version"
)

// serveOptions holds the serve flags. Empty values fall back to the config file.
type serveOptions struct {
	version     string
	versionPath string
	transport   string
	host        string
	port        int
	logLevel    string
	name        string

	// runner replaces the mcp-go transports in tests.
	runner mcp.Runner
}

// NewServeCmd creates the 'serve' command for running the MCP server.
func NewServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server for an IFS Cloud version",
		Long: `Start the ifs-cloud-mcp MCP server for one imported IFS Cloud version.

The server exposes these tools to AI clients:
  • search_ifs_code  - Hybrid keyword and semantic search
  • get_file_content - Read a source file or a line range
  • get_file_info    - Catalog metadata for a file
  • find_api         - Locate the file defining an API
  • list_components  - Components and their file counts
  • server_info      - Server and index status

Transports: stdio (default), streamable-http (/mcp) and sse (/sse, /message).
HTTP transports also serve /healthz and /metrics.`,
		Example: `  # Serve over stdio
  ifs-cloud-mcp serve --version 25.1.0

  # Add to Claude Code
  claude mcp add ifs-cloud -- ifs-cloud-mcp serve --version 25.1.0

  # Serve over streamable HTTP
  ifs-cloud-mcp serve --version 25.1.0 --transport streamable-http --port 8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.version, "version", "", "IFS Cloud version to serve (default: defaultVersion from config)")
	cmd.Flags().StringVar(&opts.versionPath, "version-path", "", "Version directory to serve, instead of --version")
	cmd.Flags().StringVarP(&opts.transport, "transport", "t", "", "Transport: stdio, streamable-http or sse")
	cmd.Flags().StringVar(&opts.host, "host", "", "Host for HTTP transports (default 0.0.0.0)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port for HTTP transports (default 8000)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARNING or ERROR")
	cmd.Flags().StringVar(&opts.name, "name", mcp.DefaultName, "Server name announced to clients")
	cmd.MarkFlagsMutuallyExclusive("version", "version-path")

	return cmd
}

// runServe resolves the version, starts the server on the chosen transport
// and cleans up when ctx is cancelled or the transport returns.
func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	// Logs go to stderr: stdout carries the stdio transport.
	logger, err := logging.Setup(level, os.Stderr)
	if err != nil {
		return err
	}

	versionPath := opts.versionPath
	if versionPath == "" && (opts.version != "" || cfg.DefaultVersion != "") {
		layout, err := resolveLayout(cfg, opts.version)
		if err != nil {
			return err
		}
		versionPath = layout.Root
	}
	if versionPath == "" {
		logger.Warn("no version selected, tools will report an error until one is configured")
	} else {
		logger = logging.WithVersion(logger, filepath.Base(versionPath))
	}

	transport := mcp.TransportOptions{
		Type: mcp.TransportType(cfg.Transport.Type),
		Host: cfg.Transport.Host,
		Port: cfg.Transport.Port,
	}
	if opts.transport != "" {
		transport.Type = mcp.TransportType(opts.transport)
	}
	if opts.host != "" {
		transport.Host = opts.host
	}
	if opts.port != 0 {
		transport.Port = opts.port
	}

	server, err := mcp.New(mcp.Options{
		VersionPath: versionPath,
		Name:        opts.name,
		Version:     version.ServerVersion(),
		Logger:      logger,
		Config:      cfg.EngineConfig(),
		Runner:      opts.runner,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := server.Cleanup(); err != nil {
			logger.Warn("cleanup failed", logging.Err(err))
		}
	}()

	if err := server.Run(ctx, transport); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
