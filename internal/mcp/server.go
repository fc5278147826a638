package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
	"github.com/DevRickLin/msg-forwarder/internal/conf"
)

// Server exposes read-only daemon status over MCP
type Server struct {
	server *mcp.Server
	status *StatusReader
	logger *slog.Logger
}

// NewServer creates the status server and registers its tools
func NewServer(cfg *conf.Config, stateRepo repo.StateRepo, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "msg-forwarder",
			Version: version,
		}, nil),
		status: NewStatusReader(cfg, stateRepo),
		logger: logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// StatusInput is the (empty) input of forwarder_status
type StatusInput struct{}

// ConfigInput is the (empty) input of forwarder_config
type ConfigInput struct{}

// DuplicatesInput selects how many dedupe entries to list
type DuplicatesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of entries to return (default 20)"`
}

// DuplicatesOutput lists recent dedupe entries, newest first
type DuplicatesOutput struct {
	Entries []DuplicateEntry `json:"entries"`
	Total   int              `json:"total"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_status",
		Description: "Report whether the forwarder daemon is running, its sent/skipped/failed counters, message cursor and last forward time.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, Status, error) {
		st := s.status.Status()
		s.logger.Debug("tool call", "tool", "forwarder_status", "running", st.DaemonRunning)
		return nil, st, nil
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_config",
		Description: "Show the effective forwarder configuration with credentials masked.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ ConfigInput) (*mcp.CallToolResult, ConfigView, error) {
		return nil, s.status.Config(), nil
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forwarder_recent_duplicates",
		Description: "List duplicate-filter entries (sender and content hash, never the text) with their age in seconds.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input DuplicatesInput) (*mcp.CallToolResult, DuplicatesOutput, error) {
		entries, total := s.status.Duplicates(input.Limit)
		return nil, DuplicatesOutput{Entries: entries, Total: total}, nil
	})
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp status server starting", "state", s.status.statePath())
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying server
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
