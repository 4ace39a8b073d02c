/*
Package mcp implements the MCP server that exposes an imported IFS Cloud
version to AI assistants.

The server registers six tools:
  - search_ifs_code: Hybrid keyword and semantic search over the source
  - get_file_content: Read a source file, optionally a line window
  - get_file_info: Catalog metadata for a file
  - find_api: Files that define an API or package name
  - list_components: Components with their file counts
  - server_info: Server, version and index status

The search engine is opened lazily on the first tool call that needs it.
*/
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
	"github.com/khanglvm/ifs-cloud-mcp/internal/learning"
	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
	"github.com/khanglvm/ifs-cloud-mcp/internal/metrics"
	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

// DefaultName is the server name announced to clients.
const DefaultName = "ifs-cloud-mcp-server"

// errNoVersion is reported by tools when the server was started without a version.
var errNoVersion = errors.New("no version loaded; start the server with --version or --version-path")

var errShutDown = errors.New("server shut down")

// Options configures a Server.
type Options struct {
	// VersionPath is the version directory to serve. Empty serves nothing.
	VersionPath string

	// Name is the server name (default "ifs-cloud-mcp-server").
	Name string

	// Version is the server version announced to clients.
	Version string

	Logger  *slog.Logger
	Config  search.Config
	Metrics *metrics.Metrics

	// Runner serves the transports. Nil uses mcp-go.
	Runner Runner
}

// Server wraps the mcp-go server, the lazily opened search engine and the
// usage tracker of one version.
type Server struct {
	name        string
	version     string
	versionPath string
	cfg         search.Config
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mcp    *mcpsrv.MCPServer
	runner Runner

	mu          sync.Mutex
	initialized bool
	engine      *search.Engine
	engineErr   error
	tracker     *learning.Tracker
	lastQuery   string

	cleanupOnce sync.Once
	cleanupErr  error
}

// New creates the server and registers its tools. It does not open any index.
func New(opts Options) (*Server, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default
	}
	if opts.Config == (search.Config{}) {
		opts.Config = search.DefaultConfig()
	}

	s := &Server{
		name:        opts.Name,
		version:     opts.Version,
		versionPath: opts.VersionPath,
		cfg:         opts.Config,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}

	s.mcp = mcpsrv.NewMCPServer(s.name, s.version,
		mcpsrv.WithToolCapabilities(true),
		mcpsrv.WithInstructions(instructions(s.versionPath)),
	)
	for _, t := range s.tools() {
		s.mcp.AddTool(t.Tool, s.instrument(t.Tool.Name, t.Handler))
	}

	s.runner = opts.Runner
	if s.runner == nil {
		s.runner = &frameworkRunner{mcp: s.mcp, metrics: s.metrics, logger: s.logger}
	}
	return s, nil
}

func instructions(versionPath string) string {
	loaded := "No IFS Cloud version is loaded."
	if versionPath != "" {
		loaded = fmt.Sprintf("The IFS Cloud version at %q is loaded.", versionPath)
	}
	return loaded + `

Use search_ifs_code to find PL/SQL packages, entities, projections and clients.
Use get_file_content to read a file found by search, find_api to locate the
file that defines an API such as Customer_Order_API, and list_components for
an overview of the modules in the version.`
}

// Name returns the announced server name.
func (s *Server) Name() string { return s.name }

// VersionPath returns the version directory the server was created with.
func (s *Server) VersionPath() string { return s.versionPath }

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpsrv.MCPServer { return s.mcp }

// SearchEngine returns the engine, or nil before initialisation or when it
// could not be opened.
func (s *Server) SearchEngine() *search.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// SearchEngineInitialized reports whether an initialisation attempt was made.
func (s *Server) SearchEngineInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// initSearchEngine opens the engine at most once. A failed open still marks
// the server initialised; the error is kept and reported by the tools.
func (s *Server) initSearchEngine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.initialized = true

	if s.versionPath == "" {
		s.logger.Warn("no version path configured, search disabled")
		return
	}

	layout := dirs.NewLayout(s.versionPath)
	var engine *search.Engine
	popularity := func(paths []string) map[string]float64 {
		if engine == nil {
			return nil
		}
		return learning.Popularity(paths, engine.Catalog())
	}
	opts := []search.Option{
		search.WithLogger(s.logger),
		search.WithMetrics(s.metrics),
		search.WithPopularity(popularity),
	}

	var err error
	switch {
	case layout.HasVectorIndex():
		engine, err = search.Open(layout, s.cfg, opts...)
	case layout.HasKeywordIndex():
		s.logger.Warn("vector index missing, using keyword search only", logging.Path(layout.Vectors))
		engine, err = search.OpenKeywordOnly(layout, s.cfg, opts...)
	default:
		err = fmt.Errorf("version %s has no indexes: %w", s.versionPath, search.ErrIndexNotBuilt)
	}
	if err != nil {
		s.logger.Error("failed to open search engine", logging.Path(s.versionPath), logging.Err(err))
		s.engineErr = err
		return
	}

	s.engine = engine
	s.tracker = learning.NewTracker(engine.Catalog(), learning.WithTrackerLogger(s.logger))
	s.logger.Info("search engine ready",
		logging.Path(s.versionPath),
		slog.Bool("keyword_only", engine.KeywordOnly()))
}

// ensureSearchEngine initialises the engine if needed and returns it.
func (s *Server) ensureSearchEngine() (*search.Engine, error) {
	s.initSearchEngine()

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.engine != nil:
		return s.engine, nil
	case s.engineErr != nil:
		return nil, s.engineErr
	default:
		return nil, errNoVersion
	}
}

// Run serves the MCP protocol over the given transport until ctx is cancelled
// or the transport stops.
func (s *Server) Run(ctx context.Context, opts TransportOptions) error {
	switch opts.Type {
	case TransportStdio:
		return s.runner.ServeStdio(ctx)
	case TransportStreamableHTTP:
		host, port := opts.address()
		s.logger.Info("starting MCP server", logging.Transport(string(opts.Type)), slog.String("host", host), slog.Int("port", port))
		return s.runner.ServeStreamableHTTP(ctx, host, port)
	case TransportSSE:
		host, port := opts.address()
		s.logger.Info("starting MCP server", logging.Transport(string(opts.Type)), slog.String("host", host), slog.Int("port", port))
		return s.runner.ServeSSE(ctx, host, port)
	default:
		return fmt.Errorf("%w: %q (supported: stdio, streamable-http, sse)", ErrUnsupportedTransport, opts.Type)
	}
}

// Cleanup stops the usage tracker and closes the search engine. It is safe
// to call more than once and on a server that never opened an engine.
func (s *Server) Cleanup() error {
	s.cleanupOnce.Do(func() {
		s.mu.Lock()
		tracker, engine := s.tracker, s.engine
		s.tracker, s.engine = nil, nil
		s.initialized = true
		s.engineErr = errShutDown
		s.mu.Unlock()

		if tracker != nil {
			tracker.Stop()
		}
		if engine != nil {
			if err := engine.Close(); err != nil {
				s.logger.Warn("error closing search engine", logging.Err(err))
				s.cleanupErr = err
			}
		}
	})
	return s.cleanupErr
}
