package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rmn-raj/seo-tool/engine"
	"github.com/rmn-raj/seo-tool/models"
	"github.com/ysmood/gson"
)

// Fetch renders req.URL in a pooled tab and returns the live DOM as markup.
// It matches engine.RodFetchFunc.
//
// Order matters: stealth JS and the hijack router only affect navigations
// that start after they are installed, and the deferred about:blank uses
// the page without the request context so cleanup survives a timeout.
func (s *Scraper) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.fetchCfg.DefaultTimeout
	}
	if s.fetchCfg.MaxTimeout > 0 && timeout > s.fetchCfg.MaxTimeout {
		timeout = s.fetchCfg.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.activePages.Add(1)
	defer s.activePages.Add(-1)

	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewAuditError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
	}()

	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	userAgent := s.fetchCfg.UserAgent
	if userAgent == "" {
		userAgent = engine.DefaultUserAgent
	}
	_ = proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: "en-US,en;q=0.9",
	}.Call(page)

	if headers := requestHeaders(req); len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: headers}.Call(page)
	}

	router := setupHijack(page, s.fetchCfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if err := p.Navigate(req.URL); err != nil {
		return nil, models.AsAuditError(err, "navigation to target URL failed")
	}

	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		if ctx.Err() != nil {
			return nil, models.AsAuditError(err, "page did not settle before the deadline")
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	// The navigation timing entry carries the document status without
	// enabling CDP network events, which conflict with the hijack router.
	var statusCode int
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}
	if statusCode == 0 {
		statusCode = 200
	}

	markup, err := p.HTML()
	if err != nil {
		return nil, models.AsAuditError(err, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &engine.FetchResult{
		HTML:       markup,
		StatusCode: statusCode,
		FinalURL:   finalURL,
	}, nil
}

// requestHeaders adds a search-engine Referer unless the caller set one.
func requestHeaders(req *engine.FetchRequest) proto.NetworkHeaders {
	headers := make(proto.NetworkHeaders, len(req.Headers)+1)
	if _, ok := req.Headers["Referer"]; !ok {
		if u, err := url.Parse(req.URL); err == nil && u.Hostname() != "" {
			headers["Referer"] = gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()))
		}
	}
	for k, v := range req.Headers {
		headers[k] = gson.New(v)
	}
	return headers
}

func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}
