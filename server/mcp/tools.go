package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kasuganosora/sedna-go/pkg/api"
	"github.com/kasuganosora/sedna-go/pkg/monitor"
)

type contextKey string

const ctxKeyAuthorized contextKey = "mcp_authorized"

// ToolDeps holds shared dependencies for MCP tool handlers
type ToolDeps struct {
	// Options are the connection defaults every tool call connects with.
	Options *api.Options
	// APIKey, when set, is required on every call.
	APIKey string
	Logger api.Logger

	// Metrics and SlowLog back the server_stats tool; both may be nil.
	Metrics *monitor.Collector
	SlowLog *monitor.SlowLog
}

// HandleExecute runs one statement and returns its items, one per line.
func (d *ToolDeps) HandleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["query"]
	if !ok || raw == nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	query, err := api.QueryText(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid query: %v", err)), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	database := request.GetString("database", "")

	if res := d.checkAuth(ctx); res != nil {
		return res, nil
	}

	start := time.Now()
	var rs *api.ResultSet
	err = api.ConnectFunc(ctx, d.options(database), func(s *api.Session) error {
		var err error
		rs, err = s.Execute(ctx, query)
		return err
	})
	d.logToolCall("execute", time.Since(start), err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("execute failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatResult(rs)), nil
}

// HandleLoadDocument bulk loads an XML document.
func (d *ToolDeps) HandleLoadDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	collection := request.GetString("collection", "")
	database := request.GetString("database", "")

	if name == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	raw, ok := request.GetArguments()["document"]
	if !ok || raw == nil {
		return mcp.NewToolResultError("document parameter is required"), nil
	}
	document, err := api.DocumentReader(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid document: %v", err)), nil
	}
	if res := d.checkAuth(ctx); res != nil {
		return res, nil
	}

	start := time.Now()
	err = api.ConnectFunc(ctx, d.options(database), func(s *api.Session) error {
		return s.LoadDocument(ctx, document, name, collection)
	})
	d.logToolCall("load_document", time.Since(start), err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}

	if collection != "" {
		return mcp.NewToolResultText(fmt.Sprintf("Loaded document '%s' into collection '%s'", name, collection)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Loaded document '%s'", name)), nil
}

// HandleListDocuments returns the $documents catalog of a database.
func (d *ToolDeps) HandleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	database := request.GetString("database", "")
	if res := d.checkAuth(ctx); res != nil {
		return res, nil
	}

	start := time.Now()
	var rs *api.ResultSet
	err := api.ConnectFunc(ctx, d.options(database), func(s *api.Session) error {
		var err error
		rs, err = s.Execute(ctx, "doc('$documents')")
		return err
	})
	d.logToolCall("list_documents", time.Since(start), err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err)), nil
	}

	return mcp.NewToolResultText(formatResult(rs)), nil
}

// serverStats is the JSON document returned by server_stats.
type serverStats struct {
	Metrics *monitor.Snapshot   `json:"metrics,omitempty"`
	Slow    []monitor.SlowEntry `json:"slow_statements"`
}

// HandleServerStats reports statement statistics of the embedded engine.
func (d *ToolDeps) HandleServerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := d.checkAuth(ctx); res != nil {
		return res, nil
	}
	if d.Metrics == nil {
		return mcp.NewToolResultError("statistics are not available for this driver"), nil
	}

	stats := serverStats{Metrics: d.Metrics.Snapshot(), Slow: []monitor.SlowEntry{}}
	if d.SlowLog != nil {
		stats.Slow = d.SlowLog.Entries()
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode statistics: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// options returns the connection defaults with the database overridden.
func (d *ToolDeps) options(database string) *api.Options {
	var o api.Options
	if d.Options != nil {
		o = *d.Options
	}
	if database != "" {
		o.Database = database
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return &o
}

func (d *ToolDeps) checkAuth(ctx context.Context) *mcp.CallToolResult {
	if d.APIKey == "" {
		return nil
	}
	if ok, _ := ctx.Value(ctxKeyAuthorized).(bool); ok {
		return nil
	}
	return mcp.NewToolResultError("unauthorized: a valid API key is required")
}

func (d *ToolDeps) logToolCall(tool string, elapsed time.Duration, err error) {
	if d.Logger == nil {
		return
	}
	if err != nil {
		d.Logger.Warn("[MCP] %s failed after %dms: %v", tool, elapsed.Milliseconds(), err)
		return
	}
	d.Logger.Info("[MCP] %s ok (%dms)", tool, elapsed.Milliseconds())
}

// formatResult renders a result set as tool output. Statements that select
// nothing print OK.
func formatResult(rs *api.ResultSet) string {
	if rs == nil {
		return "OK"
	}

	var sb strings.Builder
	for _, item := range rs.Items {
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\n(%d items)", rs.Len()))
	return sb.String()
}
