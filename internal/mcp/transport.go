package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
	"github.com/khanglvm/ifs-cloud-mcp/internal/metrics"
)

// ErrUnsupportedTransport is returned by Run for an unknown transport type.
var ErrUnsupportedTransport = errors.New("unsupported transport type")

// TransportType names an MCP transport.
type TransportType string

const (
	TransportStdio          TransportType = "stdio"
	TransportStreamableHTTP TransportType = "streamable-http"
	TransportSSE            TransportType = "sse"
)

const (
	// DefaultHost is the bind address of the HTTP transports.
	DefaultHost = "0.0.0.0"

	// DefaultPort is the port of the HTTP transports.
	DefaultPort = 8000

	shutdownTimeout = 10 * time.Second
)

// TransportOptions selects the transport and, for HTTP transports, the
// listen address.
type TransportOptions struct {
	Type TransportType
	Host string
	Port int
}

func (o TransportOptions) address() (string, int) {
	host, port := o.Host, o.Port
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	return host, port
}

// Runner serves an MCP server over a concrete transport. Each method blocks
// until ctx is cancelled or the transport fails.
type Runner interface {
	ServeStdio(ctx context.Context) error
	ServeStreamableHTTP(ctx context.Context, host string, port int) error
	ServeSSE(ctx context.Context, host string, port int) error
}

// frameworkRunner serves through mcp-go.
type frameworkRunner struct {
	mcp     *mcpsrv.MCPServer
	metrics *metrics.Metrics
	logger  *slog.Logger

	stdin  io.Reader
	stdout io.Writer
}

func (r *frameworkRunner) ServeStdio(ctx context.Context) error {
	stdin, stdout := r.stdin, r.stdout
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	srv := mcpsrv.NewStdioServer(r.mcp)
	srv.SetErrorLogger(slog.NewLogLogger(r.logger.Handler(), slog.LevelError))

	r.logger.Info("mcp server listening", logging.Transport(string(TransportStdio)))
	if err := srv.Listen(ctx, stdin, stdout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

func (r *frameworkRunner) ServeStreamableHTTP(ctx context.Context, host string, port int) error {
	return r.serveHTTP(ctx, TransportStreamableHTTP, net.JoinHostPort(host, strconv.Itoa(port)))
}

func (r *frameworkRunner) ServeSSE(ctx context.Context, host string, port int) error {
	return r.serveHTTP(ctx, TransportSSE, net.JoinHostPort(host, strconv.Itoa(port)))
}

// handler builds the mux of an HTTP transport: the MCP endpoints plus
// /healthz and /metrics.
func (r *frameworkRunner) handler(kind TransportType) http.Handler {
	mux := http.NewServeMux()

	switch kind {
	case TransportSSE:
		sse := mcpsrv.NewSSEServer(r.mcp,
			mcpsrv.WithSSEEndpoint("/sse"),
			mcpsrv.WithMessageEndpoint("/message"),
		)
		mux.Handle("/sse", sse)
		mux.Handle("/message", sse)
	default:
		streamable := mcpsrv.NewStreamableHTTPServer(r.mcp,
			mcpsrv.WithEndpointPath("/mcp"),
		)
		mux.Handle("/mcp", streamable)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	mux.Handle("/metrics", r.metrics.Handler())

	return mux
}

// serveHTTP serves the transport on addr. Request contexts derive from ctx so
// long-lived SSE and streaming requests end when ctx is cancelled.
func (r *frameworkRunner) serveHTTP(ctx context.Context, kind TransportType, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           r.handler(kind),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	r.logger.Info("mcp server listening", logging.Transport(string(kind)), slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mcp http server error: %w", err)
	case <-ctx.Done():
		r.logger.Info("mcp server shutting down", logging.Transport(string(kind)))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	}
}
