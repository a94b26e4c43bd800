package mcp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kasuganosora/sedna-go/pkg/api"
	"github.com/kasuganosora/sedna-go/pkg/config"
	"github.com/kasuganosora/sedna-go/pkg/monitor"
)

// Server is the MCP protocol server
type Server struct {
	cfg    *config.MCPConfig
	deps   *ToolDeps
	logger api.Logger
	http   *mcpserver.StreamableHTTPServer
}

// NewServer creates a new MCP server. Every tool call opens its own session
// with opts.
func NewServer(opts *api.Options, cfg *config.MCPConfig, logger api.Logger) *Server {
	if logger == nil {
		logger = api.NewNoOpLogger()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		deps: &ToolDeps{
			Options: opts,
			APIKey:  cfg.APIKey,
			Logger:  logger,
		},
	}
	s.http = mcpserver.NewStreamableHTTPServer(
		s.MCPServer(),
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithHTTPContextFunc(s.authContextFunc()),
	)
	return s
}

// SetMonitor enables the server_stats tool.
func (s *Server) SetMonitor(metrics *monitor.Collector, slowLog *monitor.SlowLog) {
	s.deps.Metrics = metrics
	s.deps.SlowLog = slowLog
}

// MCPServer builds the mcp-go server with all tools registered.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer(
		"sedna-go",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	executeTool := mcp.NewTool("execute",
		mcp.WithDescription("Execute an XQuery query, an XQuery update or a DDL statement (create/drop document or collection) against a Sedna database. Returns the result items, or OK for statements that select nothing."),
		mcp.WithString("query", mcp.Description("The statement to execute"), mcp.Required()),
		mcp.WithString("database", mcp.Description("The database to use (optional, uses the configured default)")),
	)

	loadTool := mcp.NewTool("load_document",
		mcp.WithDescription("Bulk load an XML document as a new standalone document or into a collection"),
		mcp.WithString("document", mcp.Description("The XML text of the document"), mcp.Required()),
		mcp.WithString("name", mcp.Description("The name of the new document"), mcp.Required()),
		mcp.WithString("collection", mcp.Description("The collection to load into (optional)")),
		mcp.WithString("database", mcp.Description("The database to use (optional)")),
	)

	listTool := mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents and collections of a database"),
		mcp.WithString("database", mcp.Description("The database to use (optional)")),
	)

	statsTool := mcp.NewTool("server_stats",
		mcp.WithDescription("Show statement statistics and recent slow statements of the embedded engine"),
	)

	mcpSrv.AddTool(executeTool, s.deps.HandleExecute)
	mcpSrv.AddTool(loadTool, s.deps.HandleLoadDocument)
	mcpSrv.AddTool(listTool, s.deps.HandleListDocuments)
	mcpSrv.AddTool(statsTool, s.deps.HandleServerStats)
	return mcpSrv
}

// Start starts the MCP server (blocking)
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("[MCP] 启动 MCP 服务器: %s", addr)
	return s.http.Start(addr)
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// authContextFunc marks requests carrying the configured Bearer key as
// authorized.
func (s *Server) authContextFunc() mcpserver.HTTPContextFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		if s.cfg.APIKey == "" {
			return ctx
		}

		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return ctx
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(s.cfg.APIKey)) == 1 {
			return context.WithValue(ctx, ctxKeyAuthorized, true)
		}
		return ctx
	}
}
