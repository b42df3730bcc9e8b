package models

import "github.com/rmn-raj/seo-tool/audit"

// AnalyzeResponse is the response for POST /api/v1/analyze.
type AnalyzeResponse struct {
	// Success is false when the analysis could not be performed at all.
	// A page that scores 0 is still a successful analysis.
	Success bool `json:"success"`

	// ID identifies this analysis in logs and webhook events.
	ID string `json:"id"`

	// URL is the requested URL.
	URL string `json:"url"`

	// FinalURL is the URL after following redirects.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP status of the retrieved page.
	StatusCode int `json:"status_code,omitempty"`

	// EngineUsed names the retrieval engine that produced the markup
	// (e.g. "http", "rod", "rod-stealth").
	EngineUsed string `json:"engine_used,omitempty"`

	// Report is the audit result. Nil when Success is false.
	Report *audit.Report `json:"report,omitempty"`

	// Rendered is the report rendered in the requested format
	// (empty for "json").
	Rendered string `json:"rendered,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	TotalMs    int64 `json:"total_ms"`
	FetchMs    int64 `json:"fetch_ms"`
	AnalysisMs int64 `json:"analysis_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	BrowserEnabled bool `json:"browser_enabled"`
	MaxPages       int  `json:"max_pages"`
	ActivePages    int  `json:"active_pages"`
}
