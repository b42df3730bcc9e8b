package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rmn-raj/seo-tool/audit"
	"github.com/rmn-raj/seo-tool/engine"
	"github.com/rmn-raj/seo-tool/metrics"
	"github.com/rmn-raj/seo-tool/models"
	"github.com/rmn-raj/seo-tool/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodPage = `<!DOCTYPE html><html><head>
<title>A perfectly reasonable page title</title>
<meta name="description" content="This description is long enough to pass the fifty character minimum rule.">
</head><body><h1>Main heading</h1><img src="/a.png" alt="A"></body></html>`

type fakeFetcher struct {
	result   *engine.FetchResult
	err      error
	gotReq   *engine.FetchRequest
	gotMode  engine.Mode
	deadline time.Duration
}

func (f *fakeFetcher) Dispatch(ctx context.Context, req *engine.FetchRequest, mode engine.Mode) (*engine.FetchResult, error) {
	f.gotReq, f.gotMode = req, mode
	if dl, ok := ctx.Deadline(); ok {
		f.deadline = time.Until(dl)
	}
	return f.result, f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*webhook.Event
	urls   []string
}

func (n *fakeNotifier) DeliverAsync(url string, ev *webhook.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	n.events = append(n.events, ev)
}

func page(html string) *engine.FetchResult {
	return &engine.FetchResult{HTML: html, StatusCode: 200, FinalURL: "https://example.com/", EngineName: "http"}
}

func TestAnalyze_Success(t *testing.T) {
	f := &fakeFetcher{result: page(goodPage)}
	n := &fakeNotifier{}
	a := New(f, WithNotifier(n), WithMetrics(metrics.NewWithRegistry("test", prometheus.NewRegistry())))

	resp, err := a.Analyze(context.Background(), &models.AnalyzeRequest{
		URL:        "https://example.com",
		WebhookURL: "https://hooks.example.com/seo",
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "https://example.com/", resp.FinalURL)
	assert.Equal(t, "http", resp.EngineUsed)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 100, resp.Report.Score)
	assert.NoError(t, resp.Report.Validate())
	assert.Empty(t, resp.Rendered, "json format renders nothing")

	assert.Equal(t, engine.ModeAuto, f.gotMode)
	assert.Equal(t, 10*time.Second, f.gotReq.Timeout)

	require.Len(t, n.events, 1)
	assert.Equal(t, webhook.EventAuditCompleted, n.events[0].Type)
	assert.Equal(t, resp.ID, n.events[0].AuditID)
	assert.Equal(t, "https://hooks.example.com/seo", n.urls[0])
}

func TestAnalyze_WebhookPayloadIsACopy(t *testing.T) {
	f := &fakeFetcher{err: &engine.StatusError{StatusCode: 404}}
	n := &fakeNotifier{}
	a := New(f, WithNotifier(n))

	resp, err := a.Analyze(context.Background(), &models.AnalyzeRequest{
		URL:        "https://example.com",
		WebhookURL: "https://hooks.example.com/seo",
	})
	require.Error(t, err)
	require.Len(t, n.events, 1)

	data, ok := n.events[0].Data.(*models.AnalyzeResponse)
	require.True(t, ok)
	assert.NotSame(t, resp, data)

	resp.Error = nil
	resp.ID = "changed"
	require.NotNil(t, data.Error, "callers may rewrite the response while delivery is in flight")
	assert.Equal(t, models.ErrCodeFetch, data.Error.Code)
	assert.NotEqual(t, "changed", data.ID)
}

func TestAnalyze_RequestOptions(t *testing.T) {
	f := &fakeFetcher{result: page(`<title>Hi</title>`)}
	a := New(f, WithTimeouts(5*time.Second, 30*time.Second))

	resp, err := a.Analyze(context.Background(), &models.AnalyzeRequest{
		URL:       "http://example.com",
		Timeout:   90,
		FetchMode: "browser",
		Stealth:   true,
		Format:    "text",
	})
	require.NoError(t, err)

	assert.Equal(t, engine.ModeBrowser, f.gotMode)
	assert.True(t, f.gotReq.Stealth)
	assert.Equal(t, 30*time.Second, f.gotReq.Timeout, "timeout is capped")
	assert.LessOrEqual(t, f.deadline, 30*time.Second)
	assert.Contains(t, resp.Rendered, "Score: 38/100")
	assert.Equal(t, audit.TierWarning, resp.Report.Title.Status)
}

func TestAnalyze_InvalidURL(t *testing.T) {
	f := &fakeFetcher{}
	n := &fakeNotifier{}
	a := New(f, WithNotifier(n))

	for _, raw := range []string{"", "ftp://example.com", "example.com", "https://"} {
		resp, err := a.Analyze(context.Background(), &models.AnalyzeRequest{URL: raw, WebhookURL: "https://hooks.example.com"})
		var ae *models.AuditError
		require.True(t, errors.As(err, &ae), raw)
		assert.Equal(t, models.ErrCodeInvalidInput, ae.Code, raw)
		assert.False(t, resp.Success)
		assert.Nil(t, resp.Report)
		assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
	}
	assert.Nil(t, f.gotReq, "invalid URLs are never fetched")
	assert.Len(t, n.events, 4)
	assert.Equal(t, webhook.EventAuditFailed, n.events[0].Type)
}

func TestAnalyze_FetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{"http status", fmt.Errorf("http_engine: %w", &engine.StatusError{StatusCode: 404}), models.ErrCodeFetch, "page returned HTTP status 404"},
		{"not html", &engine.StatusError{StatusCode: 200, ContentType: "image/png"}, models.ErrCodeFetch, "page is not an HTML document"},
		{"redirect not followed", fmt.Errorf("http_engine: %w", &engine.StatusError{StatusCode: 300, ContentType: "text/html"}), models.ErrCodeFetch, "page returned HTTP status 300"},
		{"too large", fmt.Errorf("http_engine: %w (10 bytes)", engine.ErrBodyTooLarge), models.ErrCodeFetch, "page exceeds the maximum body size"},
		{"timeout", fmt.Errorf("dispatcher: %w", context.DeadlineExceeded), models.ErrCodeTimeout, "failed to retrieve page"},
		{"no engine", fmt.Errorf("%w %q", engine.ErrNoEngine, "browser"), models.ErrCodeInvalidInput, "requested fetch mode is not available"},
		{"typed", models.NewAuditError(models.ErrCodeBrowserCrash, "tab died", nil), models.ErrCodeBrowserCrash, "tab died"},
		{"network", errors.New("connection refused"), models.ErrCodeFetch, "failed to retrieve page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(&fakeFetcher{err: tt.err})
			resp, err := a.Analyze(context.Background(), &models.AnalyzeRequest{URL: "https://example.com"})

			var ae *models.AuditError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.wantCode, ae.Code)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
			assert.False(t, resp.Success)
		})
	}
}

func TestAnalyzeMarkup(t *testing.T) {
	a := New(nil)

	rep, err := a.AnalyzeMarkup("")
	require.NoError(t, err)
	assert.Equal(t, 25, rep.Score, "only the image signal passes on an empty page")

	out, err := a.Render("markdown", "", rep)
	require.NoError(t, err)
	assert.Contains(t, out, "Missing title tag")
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://example.com/path?q=1"))
	assert.NoError(t, ValidateURL("http://localhost:8080"))
	assert.Error(t, ValidateURL("mailto:someone@example.com"))
	assert.Error(t, ValidateURL("://bad"))
}
