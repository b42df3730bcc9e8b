package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is sent when the caller does not override User-Agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// HTTPConfig configures an HTTPEngine.
type HTTPConfig struct {
	UserAgent    string
	MaxBodyBytes int64
	Retry        RetryConfig
}

// HTTPEngine fetches pages with a plain GET. It is the fastest option and
// sees the markup exactly as the server sends it, without JavaScript.
type HTTPEngine struct {
	client *http.Client
	cfg    HTTPConfig
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine with a Chrome-like TLS fingerprint.
func NewHTTPEngine(cfg HTTPConfig) *HTTPEngine {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return newHTTPEngine(&http.Client{Transport: transport}, cfg)
}

// NewHTTPEngineWithClient uses client as-is. Intended for tests and for
// callers that manage their own transport.
func NewHTTPEngineWithClient(client *http.Client, cfg HTTPConfig) *HTTPEngine {
	return newHTTPEngine(client, cfg)
}

func newHTTPEngine(client *http.Client, cfg HTTPConfig) *HTTPEngine {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	if client.CheckRedirect == nil {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		}
	}
	return &HTTPEngine{client: client, cfg: cfg}
}

func (e *HTTPEngine) Name() string { return "http" }

// Fetch performs the GET, retrying transport errors and 5xx responses.
// Non-2xx statuses and non-HTML bodies surface as *StatusError; a body over
// MaxBodyBytes fails with ErrBodyTooLarge.
func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var result *FetchResult
	err := withRetry(ctx, e.cfg.Retry, func() error {
		r, err := e.fetchOnce(ctx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, isRetryable)
	if err != nil {
		return nil, fmt.Errorf("http_engine: %w", err)
	}
	return result, nil
}

func (e *HTTPEngine) fetchOnce(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("User-Agent", e.cfg.UserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "identity")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	se := &StatusError{StatusCode: resp.StatusCode, ContentType: ct}
	if se.BadStatus() || !isHTMLContentType(ct) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, se
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > e.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, e.cfg.MaxBodyBytes)
	}

	body, err := charset.NewReader(bytes.NewReader(raw), ct)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	markup, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	return &FetchResult{
		HTML:       string(markup),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: e.Name(),
	}, nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
