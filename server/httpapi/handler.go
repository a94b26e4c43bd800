package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kasuganosora/sedna-go/pkg/api"
	"github.com/kasuganosora/sedna-go/pkg/monitor"
)

// Handlers serves the session endpoints. Every request runs in its own
// session opened with Options.
type Handlers struct {
	Options *api.Options
	Metrics *monitor.Collector
	SlowLog *monitor.SlowLog
}

// Execute handles POST /api/v1/execute
func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query field is required", "")
		return
	}

	var rs *api.ResultSet
	err := api.ConnectFunc(r.Context(), h.options(req.Database), func(s *api.Session) error {
		var err error
		rs, err = s.Execute(r.Context(), req.Query)
		return err
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ExecuteResponse{Items: rs.Strings(), Total: rs.Len()})
}

// Load handles POST /api/v1/load
func (h *Handlers) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name field is required", "")
		return
	}

	err := api.ConnectFunc(r.Context(), h.options(req.Database), func(s *api.Session) error {
		return s.LoadDocumentString(r.Context(), req.Document, req.Name, req.Collection)
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, LoadResponse{Name: req.Name, Collection: req.Collection})
}

// Documents handles GET /api/v1/documents
func (h *Handlers) Documents(w http.ResponseWriter, r *http.Request) {
	var rs *api.ResultSet
	err := api.ConnectFunc(r.Context(), h.options(r.URL.Query().Get("database")), func(s *api.Session) error {
		var err error
		rs, err = s.Execute(r.Context(), "doc('$documents')")
		return err
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ExecuteResponse{Items: rs.Strings(), Total: rs.Len()})
}

// Stats handles GET /api/v1/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	if h.Metrics == nil {
		writeError(w, http.StatusNotFound, "statistics are not available for this driver", "")
		return
	}

	resp := StatsResponse{Metrics: h.Metrics.Snapshot(), Slow: []monitor.SlowEntry{}}
	if h.SlowLog != nil {
		resp.Slow = h.SlowLog.Entries()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) options(database string) *api.Options {
	var o api.Options
	if h.Options != nil {
		o = *h.Options
	}
	if database != "" {
		o.Database = database
	}
	return &o
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return false
	}
	return true
}

// writeSessionError maps session error kinds onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case api.IsAuthenticationError(err):
		status = http.StatusForbidden
	case api.IsConnectionError(err):
		status = http.StatusServiceUnavailable
	case api.IsTransactionError(err):
		status = http.StatusConflict
	}

	kind := ""
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		kind = string(apiErr.Code)
	}
	writeError(w, status, err.Error(), kind)
}
