package models

// AnalyzeRequest is the payload for POST /api/v1/analyze.
type AnalyzeRequest struct {
	// URL is the page to audit. Required, must be http or https.
	URL string `json:"url" binding:"required,url"`

	// Timeout is the maximum duration in seconds for retrieving the page.
	// Default: 10. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// FetchMode controls how the page is retrieved.
	// "auto" (default): race the HTTP engine against the browser engines.
	// "http": plain HTTP only, no JavaScript rendering.
	// "browser": headless Chrome only.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto http browser"`

	// Stealth enables anti-bot-detection evasions for browser retrieval.
	Stealth bool `json:"stealth,omitempty"`

	// Format adds a rendered copy of the report to the response.
	// Allowed: "json" (default, no rendering), "text", "markdown", "html".
	Format string `json:"format,omitempty" binding:"omitempty,oneof=json text markdown html"`

	// WebhookURL, if set, receives an audit.completed or audit.failed event.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// Defaults applies default values to unset fields.
func (r *AnalyzeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 10
	}
	if r.FetchMode == "" {
		r.FetchMode = "auto"
	}
	if r.Format == "" {
		r.Format = "json"
	}
}
