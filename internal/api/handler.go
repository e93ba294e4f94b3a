package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aqualyx/geoanalyze/internal/alerts"
	"github.com/aqualyx/geoanalyze/internal/compute"
	"github.com/aqualyx/geoanalyze/internal/ingest"
	"github.com/aqualyx/geoanalyze/internal/metrics"
	"github.com/aqualyx/geoanalyze/internal/store"
	"github.com/aqualyx/geoanalyze/pkg/types"
)

// Deps are the components the Handler reads from and writes to.
type Deps struct {
	Store   *store.Store
	Engine  *compute.Engine
	Alerts  *alerts.Engine    // optional
	Metrics *metrics.Recorder // optional
	Schema  ingest.Schema

	// MaxUploadBytes caps upload bodies; zero means no limit.
	MaxUploadBytes int64

	// OnBatch, when set, is called after a new batch has been stored.
	OnBatch func(*types.Batch)
}

// Handler is the HTTP handler for all /api/v1/* endpoints and /metrics.
type Handler struct {
	deps Deps
	mux  *http.ServeMux
	now  func() time.Time // injectable for deterministic tests

	mu     sync.RWMutex
	schema ingest.Schema
}

// New creates a Handler from deps and registers all routes.
func New(deps Deps) *Handler {
	if deps.Metrics == nil {
		deps.Metrics = &metrics.Recorder{}
	}
	h := &Handler{deps: deps, mux: http.NewServeMux(), now: time.Now, schema: deps.Schema}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/upload", h.upload)
	h.mux.HandleFunc("/api/v1/batches", h.listBatches)
	h.mux.HandleFunc("/api/v1/batches/", h.batchRoutes) // subtree: {id}, {id}/export, {id}/extremes
	h.mux.HandleFunc("/api/v1/summary", h.summary)
	h.mux.HandleFunc("/api/v1/sample", h.sample)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)
	h.mux.HandleFunc("/metrics", h.metrics)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// SetSchema replaces the ingestion schema used by later uploads.
func (h *Handler) SetSchema(s ingest.Schema) {
	h.mu.Lock()
	h.schema = s
	h.mu.Unlock()
}

func (h *Handler) currentSchema() ingest.Schema {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.schema
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries := h.deps.Store.List()
	resp := HealthResponse{Status: "ok", BatchCount: len(entries)}
	for _, e := range entries {
		resp.SampleCount += e.Batch.Summary.Samples
	}
	if h.deps.Alerts != nil {
		resp.AlertsFiring = h.deps.Alerts.FiringCount()
	}
	jsonResp(w, http.StatusOK, resp)
}

// listBatches returns GET /api/v1/batches, newest first.
func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, listItems(h.deps.Store.List()))
}

// batchRoutes dispatches /api/v1/batches/{id}[/export|/extremes].
func (h *Handler) batchRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/batches/"), "/")
	if rest == "" {
		h.listBatches(w, r)
		return
	}
	id, action, _ := strings.Cut(rest, "/")

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.getBatch(w, id)
		case http.MethodDelete:
			h.deleteBatch(w, id)
		default:
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "export":
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.exportBatch(w, id)
	case "extremes":
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.batchExtremes(w, r, id)
	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) getBatch(w http.ResponseWriter, id string) {
	e, ok := h.deps.Store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "batch not found")
		return
	}
	b := e.Batch
	resp := BatchResponse{
		BatchListItem: listItem(e),
		Errors:        b.Errors,
		Summary:       b.Summary,
		Results:       b.Results,
		Bands:         b.Bands,
		Diagnostics:   computeDiagnostics(b),
	}
	if ttl := h.deps.Store.TTL(); ttl > 0 {
		resp.ExpiresAt = e.UpdatedAt.Add(ttl).UTC().Format(time.RFC3339)
	}
	jsonResp(w, http.StatusOK, resp)
}

func (h *Handler) deleteBatch(w http.ResponseWriter, id string) {
	if !h.deps.Store.Delete(id) {
		jsonErr(w, http.StatusNotFound, "batch not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// batchExtremes returns the highest and lowest reading of ?metal= in a batch.
func (h *Handler) batchExtremes(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.deps.Store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "batch not found")
		return
	}
	name := r.URL.Query().Get("metal")
	if !types.IsMetal(name) {
		jsonErr(w, http.StatusBadRequest, "unknown metal: "+name)
		return
	}
	ext, ok := compute.Extreme(e.Batch.Results, types.Metal(name))
	if !ok {
		jsonErr(w, http.StatusNotFound, name+" was not measured in this batch")
		return
	}
	jsonResp(w, http.StatusOK, ext)
}

// summary returns GET /api/v1/summary.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, totals(h.deps.Store.List()))
}

// alerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.deps.Alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.deps.Alerts.Active())
}

// snapshot returns GET /api/v1/snapshot.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.deps.Store, h.deps.Alerts, h.now()))
}

// metrics returns GET /metrics in the Prometheus text format.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	state := metrics.State{}
	for _, e := range h.deps.Store.List() {
		state.Batches = append(state.Batches, e.Batch)
	}
	if h.deps.Alerts != nil {
		state.AlertsFiring = h.deps.Alerts.FiringCount()
	}
	w.Header().Set("Content-Type", metrics.ContentType())
	metrics.Write(w, h.deps.Metrics.Gather(state)) //nolint:errcheck
}

// --- helpers ----------------------------------------------------------------

// BuildSnapshot assembles the dashboard view of all live batches. al may be nil.
func BuildSnapshot(st *store.Store, al *alerts.Engine, now time.Time) SnapshotResponse {
	entries := st.List()
	resp := SnapshotResponse{
		Batches:     listItems(entries),
		Totals:      totals(entries),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
	if al != nil {
		resp.AlertsFiring = al.FiringCount()
	}
	return resp
}

func totals(entries []*store.Entry) SummaryResponse {
	var resp SummaryResponse
	var hpiSum float64
	for _, e := range entries {
		s := e.Batch.Summary
		resp.BatchCount++
		resp.SampleCount += s.Samples
		resp.ErrorCount += len(e.Batch.Errors)
		resp.Counts.Merge(s.Counts)
		hpiSum += s.MeanHPI * float64(s.Samples)
		if s.MaxHPI > resp.MaxHPI {
			resp.MaxHPI = s.MaxHPI
		}
		if s.MaxCD > resp.MaxCD {
			resp.MaxCD = s.MaxCD
		}
	}
	if resp.SampleCount > 0 {
		resp.MeanHPI = hpiSum / float64(resp.SampleCount)
	}
	return resp
}

func listItems(entries []*store.Entry) []BatchListItem {
	out := make([]BatchListItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, listItem(e))
	}
	return out
}

func listItem(e *store.Entry) BatchListItem {
	b := e.Batch
	return BatchListItem{
		ID:          b.ID,
		Name:        b.Name,
		CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
		SampleCount: len(b.Results),
		ErrorCount:  len(b.Errors),
		Counts:      b.Summary.Counts,
		MaxHPI:      b.Summary.MaxHPI,
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
