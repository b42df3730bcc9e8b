package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testHTTPEngine() *HTTPEngine {
	return NewHTTPEngineWithClient(&http.Client{}, HTTPConfig{
		Retry: RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	})
}

func TestHTTPEngine_FetchHTML(t *testing.T) {
	gotUA := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><head><title>Hello</title></head></html>")
	}))
	defer srv.Close()

	res, err := testHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}
	if res.EngineName != "http" {
		t.Errorf("engine = %q, want http", res.EngineName)
	}
	if res.HTML != "<html><head><title>Hello</title></head></html>" {
		t.Errorf("unexpected body: %q", res.HTML)
	}
	if ua := <-gotUA; ua != DefaultUserAgent {
		t.Errorf("user agent = %q", ua)
	}
}

func TestHTTPEngine_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<title>New</title>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := testHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/old"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalURL != srv.URL+"/new" {
		t.Errorf("final url = %q, want %q", res.FinalURL, srv.URL+"/new")
	}
}

func TestHTTPEngine_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", se.StatusCode)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1 (4xx must not be retried)", n)
	}
}

func TestHTTPEngine_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<h1>ok</h1>")
	}))
	defer srv.Close()

	res, err := testHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.HTML != "<h1>ok</h1>" {
		t.Errorf("unexpected body: %q", res.HTML)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestHTTPEngine_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 StatusError, got %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", n)
	}
}

func TestHTTPEngine_NonHTMLRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"title":"not a page"}`)
	}))
	defer srv.Close()

	_, err := testHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.ContentType != "application/json" {
		t.Errorf("content type = %q", se.ContentType)
	}
}

func TestHTTPEngine_RejectsNon2xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusMultipleChoices)
		fmt.Fprint(w, "<title>Pick one of these pages</title>")
	}))
	defer srv.Close()

	_, err := testHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusMultipleChoices {
		t.Fatalf("expected 300 StatusError, got %v", err)
	}
	if got := se.Error(); got != "unexpected status 300" {
		t.Errorf("error = %q", got)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (3xx is not retried)", calls.Load())
	}
}

func TestHTTPEngine_BodyTooLarge(t *testing.T) {
	const limit = 32
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/fits" {
			fmt.Fprint(w, strings.Repeat("a", limit))
			return
		}
		fmt.Fprint(w, strings.Repeat("a", limit)+"<h1>late</h1>")
	}))
	defer srv.Close()

	e := NewHTTPEngineWithClient(&http.Client{}, HTTPConfig{
		MaxBodyBytes: limit,
		Retry:        RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	})

	_, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/big"})
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (oversized bodies are not retried)", calls.Load())
	}

	res, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/fits"})
	if err != nil {
		t.Fatalf("body at the limit: unexpected error: %v", err)
	}
	if len(res.HTML) != limit {
		t.Errorf("len = %d, want %d", len(res.HTML), limit)
	}
}

func TestHTTPEngine_DecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<title>Caf\xe9</title>"))
	}))
	defer srv.Close()

	res, err := testHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.HTML != "<title>Café</title>" {
		t.Errorf("body = %q, want UTF-8 decoded", res.HTML)
	}
}

func TestHTTPEngine_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := testHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL, Timeout: 50 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

// stubEngine is a scripted Engine for dispatcher tests.
type stubEngine struct {
	name  string
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	s.calls.Add(1)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
	}
	if s.err != nil {
		return nil, s.err
	}
	return &FetchResult{HTML: "<p>" + s.name + "</p>", StatusCode: 200, FinalURL: req.URL, EngineName: s.name}, nil
}

type recordingObserver struct {
	attempts atomic.Int32
}

func (o *recordingObserver) ObserveFetch(string, time.Duration, error) { o.attempts.Add(1) }

func TestDispatcher_FirstSuccessWins(t *testing.T) {
	fast := &stubEngine{name: "http", err: errors.New("boom")}
	slow := &stubEngine{name: "rod", delay: 10 * time.Millisecond}
	d := NewDispatcher([]Engine{fast, slow}, []time.Duration{0, 0}, nil)
	obs := &recordingObserver{}
	d.SetObserver(obs)

	res, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com"}, ModeAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EngineName != "rod" {
		t.Errorf("winner = %q, want rod", res.EngineName)
	}
	if n := obs.attempts.Load(); n != 2 {
		t.Errorf("observed attempts = %d, want 2", n)
	}
}

func TestDispatcher_PrefersStatusError(t *testing.T) {
	httpEng := &stubEngine{name: "http", err: &StatusError{StatusCode: 404}}
	rodEng := &stubEngine{name: "rod", delay: 5 * time.Millisecond, err: errors.New("browser crashed")}
	d := NewDispatcher([]Engine{httpEng, rodEng}, nil, nil)

	_, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com"}, ModeAuto)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 404 {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
}

func TestDispatcher_ModeFiltersEngines(t *testing.T) {
	httpEng := &stubEngine{name: "http"}
	rodEng := &stubEngine{name: "rod"}
	d := NewDispatcher([]Engine{httpEng, rodEng}, []time.Duration{0, time.Hour}, nil)

	res, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com"}, ModeBrowser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EngineName != "rod" {
		t.Errorf("winner = %q, want rod", res.EngineName)
	}
	if httpEng.calls.Load() != 0 {
		t.Error("http engine must not run in browser mode")
	}
}

func TestDispatcher_NoEngineForMode(t *testing.T) {
	d := NewDispatcher([]Engine{&stubEngine{name: "http"}}, nil, nil)

	_, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com"}, ModeBrowser)
	if !errors.Is(err, ErrNoEngine) {
		t.Fatalf("expected ErrNoEngine, got %v", err)
	}
}

func TestDispatcher_DomainMemory(t *testing.T) {
	mem := NewDomainMemory(time.Minute, time.Hour)
	defer mem.Stop()

	httpEng := &stubEngine{name: "http", err: errors.New("blocked")}
	rodEng := &stubEngine{name: "rod"}
	d := NewDispatcher([]Engine{httpEng, rodEng}, []time.Duration{0, 0}, mem)

	if _, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com/a"}, ModeAuto); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mem.Get("example.com"); got != "rod" {
		t.Fatalf("remembered = %q, want rod", got)
	}

	httpCalls := httpEng.calls.Load()
	if _, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com/b"}, ModeAuto); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if httpEng.calls.Load() != httpCalls {
		t.Error("remembered engine should be tried alone")
	}
}

func TestDomainMemory_Expiry(t *testing.T) {
	mem := NewDomainMemory(time.Millisecond, time.Hour)
	defer mem.Stop()

	mem.Set("example.com", "http")
	time.Sleep(5 * time.Millisecond)
	if got := mem.Get("example.com"); got != "" {
		t.Errorf("expired entry returned %q", got)
	}

	mem.Set("example.org", "rod")
	mem.prune(time.Now().Add(time.Second))
	if _, ok := mem.store.Load("example.org"); ok {
		t.Error("prune should remove expired entries")
	}

	var nilMem *DomainMemory
	nilMem.Set("example.com", "http")
	if nilMem.Get("example.com") != "" {
		t.Error("nil memory must remember nothing")
	}
	mem.Stop()
}

func TestRodEngine(t *testing.T) {
	var sawStealth bool
	fetch := func(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
		sawStealth = req.Stealth
		return &FetchResult{HTML: "<p>x</p>", StatusCode: 200}, nil
	}

	e := NewRodEngine(fetch, true)
	if e.Name() != "rod-stealth" {
		t.Errorf("name = %q", e.Name())
	}
	req := &FetchRequest{URL: "https://example.com"}
	res, err := e.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawStealth || req.Stealth {
		t.Error("stealth must be forced on a copy of the request")
	}
	if res.EngineName != "rod-stealth" {
		t.Errorf("engine = %q", res.EngineName)
	}

	errPage := NewRodEngine(func(context.Context, *FetchRequest) (*FetchResult, error) {
		return &FetchResult{StatusCode: 500}, nil
	}, false)
	_, err = errPage.Fetch(context.Background(), req)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 500 {
		t.Fatalf("expected 500 StatusError, got %v", err)
	}

	notModified := NewRodEngine(func(context.Context, *FetchRequest) (*FetchResult, error) {
		return &FetchResult{HTML: "<title>cached</title>", StatusCode: 304}, nil
	}, false)
	if _, err := notModified.Fetch(context.Background(), req); !errors.As(err, &se) || se.StatusCode != 304 {
		t.Fatalf("expected 304 StatusError, got %v", err)
	}

	if _, err := NewRodEngine(nil, false).Fetch(context.Background(), req); err == nil {
		t.Error("expected error for unconfigured engine")
	}
}
