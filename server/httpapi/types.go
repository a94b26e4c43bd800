package httpapi

import "github.com/kasuganosora/sedna-go/pkg/monitor"

// ExecuteRequest is the body of POST /api/v1/execute
type ExecuteRequest struct {
	Query    string `json:"query"`
	Database string `json:"database,omitempty"`
}

// ExecuteResponse represents a successful statement. Items is null for
// statements that select nothing.
type ExecuteResponse struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

// LoadRequest is the body of POST /api/v1/load
type LoadRequest struct {
	Document   string `json:"document"`
	Name       string `json:"name"`
	Collection string `json:"collection,omitempty"`
	Database   string `json:"database,omitempty"`
}

// LoadResponse represents a successful bulk load
type LoadResponse struct {
	Name       string `json:"name"`
	Collection string `json:"collection,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Code  int    `json:"code"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// StatsResponse is returned by GET /api/v1/stats
type StatsResponse struct {
	Metrics *monitor.Snapshot   `json:"metrics"`
	Slow    []monitor.SlowEntry `json:"slow_statements"`
}
