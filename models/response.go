package models

// ResearchResponse is the response for POST /api/v1/research.
type ResearchResponse struct {
	// Success indicates whether the run produced a report. Per-item
	// extraction failures do not flip this; they appear as entry markers.
	Success bool `json:"success"`

	// Report is the ordered batch outcome.
	Report *Report `json:"report,omitempty"`

	// Timing provides duration breakdowns for the run.
	Timing ResearchTimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ResearchTimingInfo breaks a run down into its phases.
type ResearchTimingInfo struct {
	TotalMs    int64 `json:"total_ms"`
	SessionMs  int64 `json:"session_ms"`
	HarvestMs  int64 `json:"harvest_ms"`
	ProductsMs int64 `json:"products_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
