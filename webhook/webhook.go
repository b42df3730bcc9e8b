package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Event types.
const (
	EventAuditCompleted = "audit.completed"
	EventAuditFailed    = "audit.failed"
)

// SignatureHeader carries "sha256=<hex>" when a secret is configured.
const SignatureHeader = "X-SEOAudit-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	AuditID   string `json:"audit_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, auditID string, data any) *Event {
	return &Event{
		Type:      eventType,
		AuditID:   auditID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}

// Notifier delivers events over HTTP. The zero value is not usable; use New.
type Notifier struct {
	secret  string
	client  *http.Client
	retries uint64
	backoff func() backoff.BackOff
	wg      sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// WithRetry sets how many times an async delivery is retried and the
// interval between the first two attempts.
func WithRetry(retries uint64, initial time.Duration) Option {
	return func(n *Notifier) {
		n.retries = retries
		n.backoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.Multiplier = 5
			b.MaxInterval = 30 * initial
			b.MaxElapsedTime = 0
			return b
		}
	}
}

// New creates a Notifier. A non-empty secret signs every payload.
func New(secret string, timeout time.Duration, opts ...Option) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	n := &Notifier{
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
	WithRetry(3, time.Second)(n)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

// Deliver sends event synchronously. 4xx responses are not worth retrying
// and come back as permanent errors.
func (n *Notifier) Deliver(ctx context.Context, url string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("webhook: marshal event: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("webhook: create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SEOAudit-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode))
	}
	return nil
}

// DeliverAsync sends event in the background, retrying transient failures
// with exponential backoff. Wait blocks until all such deliveries finish.
func (n *Notifier) DeliverAsync(url string, event *Event) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		attempt := 0
		op := func() error {
			attempt++
			ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
			defer cancel()
			err := n.Deliver(ctx, url, event)
			if err != nil {
				slog.Warn("webhook delivery failed",
					"url", url,
					"event", event.Type,
					"audit_id", event.AuditID,
					"attempt", attempt,
					"error", err,
				)
			}
			return err
		}

		err := backoff.Retry(op, backoff.WithMaxRetries(n.backoff(), n.retries))
		if err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				err = perm.Err
			}
			slog.Error("webhook delivery abandoned",
				"url", url,
				"event", event.Type,
				"audit_id", event.AuditID,
				"attempts", attempt,
				"error", err,
			)
			return
		}
		slog.Info("webhook delivered",
			"url", url,
			"event", event.Type,
			"audit_id", event.AuditID,
			"attempt", attempt,
		)
	}()
}

// Wait blocks until every pending async delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
