// Package analyzer runs one audit end to end: retrieve the page, parse it,
// evaluate the four signals, render the report and publish the outcome.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rmn-raj/seo-tool/audit"
	"github.com/rmn-raj/seo-tool/dom"
	"github.com/rmn-raj/seo-tool/engine"
	"github.com/rmn-raj/seo-tool/metrics"
	"github.com/rmn-raj/seo-tool/models"
	"github.com/rmn-raj/seo-tool/report"
	"github.com/rmn-raj/seo-tool/webhook"
)

// Fetcher retrieves page markup. *engine.Dispatcher implements it.
type Fetcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest, mode engine.Mode) (*engine.FetchResult, error)
}

// Notifier publishes audit events. *webhook.Notifier implements it.
type Notifier interface {
	DeliverAsync(url string, event *webhook.Event)
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	fetcher        Fetcher
	renderer       *report.Renderer
	metrics        *metrics.Metrics
	notifier       Notifier
	defaultTimeout time.Duration
	maxTimeout     time.Duration
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMetrics records every audit to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithNotifier sends webhook events through n.
func WithNotifier(n Notifier) Option {
	return func(a *Analyzer) { a.notifier = n }
}

// WithTimeouts sets the retrieval timeout used when a request has none and
// the ceiling applied to requested timeouts.
func WithTimeouts(def, max time.Duration) Option {
	return func(a *Analyzer) {
		a.defaultTimeout = def
		a.maxTimeout = max
	}
}

// New creates an Analyzer that retrieves pages through f.
func New(f Fetcher, opts ...Option) *Analyzer {
	a := &Analyzer{
		fetcher:        f,
		renderer:       report.NewRenderer(),
		defaultTimeout: 10 * time.Second,
		maxTimeout:     120 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze audits req.URL. The response is always populated; on failure it
// carries Success=false and the same *models.AuditError that is returned.
func (a *Analyzer) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	start := time.Now()
	req.Defaults()

	resp := &models.AnalyzeResponse{
		ID:  uuid.New().String(),
		URL: req.URL,
	}
	fail := func(err *models.AuditError) (*models.AnalyzeResponse, error) {
		resp.Success = false
		resp.Error = err.ToDetail()
		resp.Timing.TotalMs = time.Since(start).Milliseconds()
		a.metrics.RecordFailure(err.Code, time.Since(start))
		slog.Warn("audit failed", "id", resp.ID, "url", req.URL, "code", err.Code, "error", err)
		a.notify(req.WebhookURL, webhook.EventAuditFailed, resp)
		return resp, err
	}

	if err := ValidateURL(req.URL); err != nil {
		return fail(models.NewAuditError(models.ErrCodeInvalidInput, err.Error(), err))
	}

	fetchStart := time.Now()
	result, err := a.fetch(ctx, req)
	resp.Timing.FetchMs = time.Since(fetchStart).Milliseconds()
	if err != nil {
		return fail(classifyFetchError(err))
	}
	resp.FinalURL = result.FinalURL
	resp.StatusCode = result.StatusCode
	resp.EngineUsed = result.EngineName

	analysisStart := time.Now()
	rep, aerr := a.analyzeMarkup(result.HTML)
	if aerr != nil {
		return fail(aerr)
	}
	rendered, err := a.renderer.Render(req.Format, req.URL, rep)
	if err != nil {
		return fail(models.NewAuditError(models.ErrCodeInternal, "failed to render report", err))
	}
	resp.Timing.AnalysisMs = time.Since(analysisStart).Milliseconds()

	resp.Success = true
	resp.Report = rep
	resp.Rendered = rendered
	resp.Timing.TotalMs = time.Since(start).Milliseconds()

	a.metrics.RecordAudit(rep, time.Since(start))
	slog.Info("audit completed",
		"id", resp.ID,
		"url", req.URL,
		"engine", resp.EngineUsed,
		"score", rep.Score,
		"total_ms", resp.Timing.TotalMs,
	)
	a.notify(req.WebhookURL, webhook.EventAuditCompleted, resp)
	return resp, nil
}

// AnalyzeMarkup audits markup that is already in hand, such as a saved file.
func (a *Analyzer) AnalyzeMarkup(markup string) (*audit.Report, error) {
	rep, err := a.analyzeMarkup(markup)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// Render formats rep with the analyzer's renderer.
func (a *Analyzer) Render(format, pageURL string, rep *audit.Report) (string, error) {
	return a.renderer.Render(format, pageURL, rep)
}

func (a *Analyzer) analyzeMarkup(markup string) (*audit.Report, *models.AuditError) {
	doc, err := dom.Parse(markup)
	if err != nil {
		return nil, models.NewAuditError(models.ErrCodeParse, "failed to parse page markup", err)
	}
	rep, err := audit.Analyze(doc)
	if err != nil {
		return nil, models.NewAuditError(models.ErrCodeInternal, "analysis failed", err)
	}
	return rep, nil
}

func (a *Analyzer) fetch(ctx context.Context, req *models.AnalyzeRequest) (*engine.FetchResult, error) {
	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 {
		timeout = a.defaultTimeout
	}
	if a.maxTimeout > 0 && timeout > a.maxTimeout {
		timeout = a.maxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return a.fetcher.Dispatch(ctx, &engine.FetchRequest{
		URL:     req.URL,
		Timeout: timeout,
		Stealth: req.Stealth,
	}, engine.Mode(req.FetchMode))
}

func (a *Analyzer) notify(target, eventType string, resp *models.AnalyzeResponse) {
	if a.notifier == nil || target == "" {
		return
	}
	// Delivery encodes the payload in the background while the caller still
	// owns resp, so the event carries its own copy.
	snapshot := *resp
	a.notifier.DeliverAsync(target, webhook.NewEvent(eventType, resp.ID, &snapshot))
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}

// classifyFetchError maps retrieval failures to API error codes.
func classifyFetchError(err error) *models.AuditError {
	var se *engine.StatusError
	switch {
	case errors.Is(err, engine.ErrNoEngine):
		return models.NewAuditError(models.ErrCodeInvalidInput, "requested fetch mode is not available", err)
	case errors.Is(err, engine.ErrBodyTooLarge):
		return models.NewAuditError(models.ErrCodeFetch, "page exceeds the maximum body size", err)
	case errors.As(err, &se) && se.BadStatus():
		return models.NewAuditError(models.ErrCodeFetch, fmt.Sprintf("page returned HTTP status %d", se.StatusCode), err)
	case errors.As(err, &se):
		return models.NewAuditError(models.ErrCodeFetch, "page is not an HTML document", err)
	}
	return models.AsAuditError(err, "failed to retrieve page")
}
