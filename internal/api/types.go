package api

import "github.com/aqualyx/geoanalyze/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	BatchCount   int    `json:"batch_count"`
	SampleCount  int    `json:"sample_count"`
	AlertsFiring int    `json:"alerts_firing"`
}

// UploadResponse is the payload for POST /api/v1/upload and POST /api/v1/sample.
type UploadResponse struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Count   int                    `json:"count"`
	Errors  []string               `json:"errors"`
	Summary types.AggregateSummary `json:"summary"`
}

// RejectedResponse is the 422 payload when an upload yields no records.
type RejectedResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors"`
}

// BatchListItem is one entry of GET /api/v1/batches.
type BatchListItem struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	CreatedAt   string               `json:"created_at"` // RFC3339
	SampleCount int                  `json:"sample_count"`
	ErrorCount  int                  `json:"error_count"`
	Counts      types.CategoryCounts `json:"counts"`
	MaxHPI      float64              `json:"max_hpi"`
}

// BatchResponse is the payload for GET /api/v1/batches/{id}.
type BatchResponse struct {
	BatchListItem
	ExpiresAt   string                 `json:"expires_at,omitempty"` // RFC3339
	Errors      []string               `json:"errors"`
	Summary     types.AggregateSummary `json:"summary"`
	Results     []types.ComputedRecord `json:"results"`
	Bands       types.Bands            `json:"bands"`
	Diagnostics []DiagnosticHint       `json:"diagnostics"`
}

// SummaryResponse is the payload for GET /api/v1/summary: totals across all
// live batches.
type SummaryResponse struct {
	BatchCount  int                  `json:"batch_count"`
	SampleCount int                  `json:"sample_count"`
	ErrorCount  int                  `json:"error_count"`
	Counts      types.CategoryCounts `json:"counts"`
	MeanHPI     float64              `json:"mean_hpi"`
	MaxHPI      float64              `json:"max_hpi"`
	MaxCD       float64              `json:"max_cd"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket broadcast.
type SnapshotResponse struct {
	Batches      []BatchListItem `json:"batches"`
	Totals       SummaryResponse `json:"totals"`
	AlertsFiring int             `json:"alerts_firing"`
	GeneratedAt  string          `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
