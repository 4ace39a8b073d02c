package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
	"github.com/khanglvm/ifs-cloud-mcp/internal/learning"
	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

// Tool names.
const (
	ToolSearch         = "search_ifs_code"
	ToolFileContent    = "get_file_content"
	ToolFileInfo       = "get_file_info"
	ToolFindAPI        = "find_api"
	ToolListComponents = "list_components"
	ToolServerInfo     = "server_info"
)

// tools returns every tool the server exposes.
func (s *Server) tools() []mcpsrv.ServerTool {
	return []mcpsrv.ServerTool{
		s.toolSearch(),
		s.toolFileContent(),
		s.toolFileInfo(),
		s.toolFindAPI(),
		s.toolListComponents(),
		s.toolServerInfo(),
	}
}

// instrument counts each call of a tool by outcome.
func (s *Server) instrument(name string, h mcpsrv.ToolHandlerFunc) mcpsrv.ToolHandlerFunc {
	logger := logging.WithTool(s.logger, name)
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		start := time.Now()
		result, err := h(ctx, req)
		ok := err == nil && result != nil && !result.IsError
		s.metrics.ToolCall(name, ok)
		logger.DebugContext(ctx, "tool call", slog.Bool("ok", ok), logging.Duration(time.Since(start)), logging.Err(err))
		return result, err
	}
}

func (s *Server) toolSearch() mcpsrv.ServerTool {
	tool := mcplib.NewTool(ToolSearch,
		mcplib.WithDescription(`Search the IFS Cloud source code.

Combines BM25 keyword search with semantic similarity and boosts files that
are central in the API reference graph. Use IFS names where you know them
(e.g. "Customer_Order_API", "CustomerOrder entity") or describe what the code
does (e.g. "release customer order reservation").

Returns: JSON list of files with path, name, type, component, score and a snippet.`),
		mcplib.WithString("query",
			mcplib.Required(),
			mcplib.Description("Search query"),
		),
		mcplib.WithNumber("limit",
			mcplib.Description(fmt.Sprintf("Maximum number of results (1-%d)", search.MaxLimit)),
		),
		mcplib.WithString("file_type",
			mcplib.Description("Only return files of this type, e.g. plsql, entity, projection, client"),
		),
		mcplib.WithString("component",
			mcplib.Description("Only return files of this component, e.g. order, fndbas"),
		),
		mcplib.WithString("mode",
			mcplib.Description("Search mode"),
			mcplib.Enum(string(search.ModeHybrid), string(search.ModeKeyword), string(search.ModeSemantic)),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSearch}
}

func (s *Server) handleSearch(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query, _ := stringArg(req, "query")
	if strings.TrimSpace(query) == "" {
		return resultErr(errors.New("query is required")), nil
	}

	modeArg, _ := stringArg(req, "mode")
	mode, err := search.ParseMode(modeArg)
	if err != nil {
		return resultErr(err), nil
	}

	limit := intArg(req, "limit", 0)
	if limit < 0 || limit > search.MaxLimit {
		return resultErr(fmt.Errorf("limit must be between 1 and %d", search.MaxLimit)), nil
	}

	engine, err := s.ensureSearchEngine()
	if err != nil {
		return resultErr(err), nil
	}

	fileType, _ := stringArg(req, "file_type")
	component, _ := stringArg(req, "component")

	resp, err := engine.Search(ctx, search.Query{
		Text:    query,
		Limit:   limit,
		Mode:    mode,
		Filters: search.Filters{FileType: fileType, Component: component},
	})
	if err != nil {
		return resultErr(fmt.Errorf("search failed: %w", err)), nil
	}

	s.mu.Lock()
	s.lastQuery = query
	s.mu.Unlock()

	if len(resp.Results) == 0 {
		return resultText(fmt.Sprintf("No results for %q.", query)), nil
	}
	return resultJSON(resp)
}

func (s *Server) toolFileContent() mcpsrv.ServerTool {
	tool := mcplib.NewTool(ToolFileContent,
		mcplib.WithDescription(`Read a source file of the loaded version.

Use a path returned by search_ifs_code or find_api. Optionally pass a 1-based,
inclusive line window to read part of a large file.`),
		mcplib.WithString("path",
			mcplib.Required(),
			mcplib.Description("Path relative to the source directory"),
		),
		mcplib.WithNumber("start_line",
			mcplib.Description("First line to return (1-based)"),
		),
		mcplib.WithNumber("end_line",
			mcplib.Description("Last line to return (inclusive)"),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleFileContent}
}

func (s *Server) handleFileContent(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	rel, err := pathArg(req)
	if err != nil {
		return resultErr(err), nil
	}
	if s.versionPath == "" {
		return resultErr(errNoVersion), nil
	}

	full, err := dirs.NewLayout(s.versionPath).SourceFile(filepath.FromSlash(rel))
	if err != nil {
		return resultErr(err), nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return resultErr(fmt.Errorf("file not found: %s", rel)), nil
		}
		return resultErr(fmt.Errorf("failed to read %s: %w", rel, err)), nil
	}

	start := intArg(req, "start_line", 0)
	end := intArg(req, "end_line", 0)
	text, err := lineWindow(string(data), start, end)
	if err != nil {
		return resultErr(err), nil
	}

	s.trackRead(ctx, rel)
	return resultText(text), nil
}

// trackRead records a file read for popularity scoring.
func (s *Server) trackRead(ctx context.Context, rel string) {
	s.initSearchEngine()

	s.mu.Lock()
	tracker, query := s.tracker, s.lastQuery
	s.mu.Unlock()

	if tracker == nil {
		return
	}
	tracker.Track(learning.NewUsageEvent(rel, ToolFileContent, query))
	s.logger.DebugContext(ctx, "tracked file read", logging.Path(rel))
}

// lineWindow returns lines start..end (1-based, inclusive) of text. Zero
// start or end means the first or last line.
func lineWindow(text string, start, end int) (string, error) {
	if start == 0 && end == 0 {
		return text, nil
	}

	lines := strings.SplitAfter(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	if start == 0 {
		start = 1
	}
	if end == 0 || end > len(lines) {
		end = len(lines)
	}
	if start < 1 || start > len(lines) {
		return "", fmt.Errorf("start_line %d is outside the file (1-%d)", start, len(lines))
	}
	if end < start {
		return "", fmt.Errorf("end_line %d is before start_line %d", end, start)
	}
	return strings.Join(lines[start-1:end], ""), nil
}

func (s *Server) toolFileInfo() mcpsrv.ServerTool {
	tool := mcplib.NewTool(ToolFileInfo,
		mcplib.WithDescription("Get catalog metadata for a source file: type, component, entity, the APIs it defines and references, its rank and size."),
		mcplib.WithString("path",
			mcplib.Required(),
			mcplib.Description("Path relative to the source directory"),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleFileInfo}
}

func (s *Server) handleFileInfo(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	rel, err := pathArg(req)
	if err != nil {
		return resultErr(err), nil
	}

	engine, err := s.ensureSearchEngine()
	if err != nil {
		return resultErr(err), nil
	}

	record, err := engine.Catalog().GetFile(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return resultErr(fmt.Errorf("file not in catalog: %s", rel)), nil
		}
		return resultErr(err), nil
	}
	return resultJSON(record)
}

func (s *Server) toolFindAPI() mcpsrv.ServerTool {
	tool := mcplib.NewTool(ToolFindAPI,
		mcplib.WithDescription(`Find the files that define an API or package.

Matches PL/SQL package names such as "Customer_Order_API", fragment names and
projection entity sets. Matching is case-insensitive.`),
		mcplib.WithString("name",
			mcplib.Required(),
			mcplib.Description("API, package or entity set name"),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleFindAPI}
}

func (s *Server) handleFindAPI(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name, _ := stringArg(req, "name")
	name = strings.TrimSpace(name)
	if name == "" {
		return resultErr(errors.New("name is required")), nil
	}

	engine, err := s.ensureSearchEngine()
	if err != nil {
		return resultErr(err), nil
	}

	records, err := engine.Catalog().FindAPI(name)
	if err != nil {
		return resultErr(err), nil
	}
	if len(records) == 0 {
		return resultText(fmt.Sprintf("No file defines %q.", name)), nil
	}
	return resultJSON(records)
}

func (s *Server) toolListComponents() mcpsrv.ServerTool {
	tool := mcplib.NewTool(ToolListComponents,
		mcplib.WithDescription("List the components (modules) of the loaded version with their file counts."),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleListComponents}
}

func (s *Server) handleListComponents(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	engine, err := s.ensureSearchEngine()
	if err != nil {
		return resultErr(err), nil
	}

	components, err := engine.Catalog().ListComponents()
	if err != nil {
		return resultErr(err), nil
	}
	return resultJSON(components)
}

func (s *Server) toolServerInfo() mcpsrv.ServerTool {
	tool := mcplib.NewTool(ToolServerInfo,
		mcplib.WithDescription("Describe the server: name, version, data directory, the loaded IFS Cloud version and index statistics."),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleServerInfo}
}

// serverInfo is the payload of server_info.
type serverInfo struct {
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	DataDir     string        `json:"data_dir,omitempty"`
	VersionPath string        `json:"version_path,omitempty"`
	IFSVersion  string        `json:"ifs_version,omitempty"`
	Initialized bool          `json:"search_initialized"`
	Index       *search.Stats `json:"index,omitempty"`
	Tracking    *trackingInfo `json:"tracking,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// trackingInfo reports the state of the file read tracker.
type trackingInfo struct {
	Queued  int   `json:"queued"`
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
}

func (s *Server) handleServerInfo(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	info := serverInfo{
		Name:        s.name,
		Version:     s.version,
		VersionPath: s.versionPath,
	}
	if dataDir, err := dirs.DataDirectory(); err == nil {
		info.DataDir = dataDir
	}
	if s.versionPath != "" {
		info.IFSVersion = filepath.Base(s.versionPath)
	}

	engine, err := s.ensureSearchEngine()
	info.Initialized = s.SearchEngineInitialized()
	switch {
	case engine != nil:
		stats := engine.Stats()
		info.Index = &stats
	case err != nil:
		info.Error = err.Error()
	}

	s.mu.Lock()
	tracker := s.tracker
	s.mu.Unlock()
	if tracker != nil {
		info.Tracking = &trackingInfo{
			Queued:  tracker.Queued(),
			Written: tracker.Written(),
			Dropped: tracker.Dropped(),
		}
	}
	return resultJSON(info)
}

func resultText(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}

func resultErr(err error) *mcplib.CallToolResult {
	return mcplib.NewToolResultError(err.Error())
}

func resultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return resultErr(fmt.Errorf("failed to encode result: %w", err)), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

// pathArg returns the cleaned, slash-separated path argument.
func pathArg(req mcplib.CallToolRequest) (string, error) {
	p, _ := stringArg(req, "path")
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return "", errors.New("path is required")
	}
	return path.Clean(p), nil
}

func stringArg(req mcplib.CallToolRequest, name string) (string, bool) {
	v, ok := req.GetArguments()[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intArg returns a numeric argument. JSON numbers arrive as float64.
func intArg(req mcplib.CallToolRequest, name string, defaultVal int) int {
	v, ok := req.GetArguments()[name]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return defaultVal
}
