package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBodyTooLarge is returned when a page exceeds the configured body cap.
// A truncated document would undercount headings and images.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Engine is the interface that all retrieval engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod", "rod-stealth").
	Name() string

	// Fetch retrieves the page markup for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to retrieve a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	Stealth bool
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	EngineName string
}

// StatusError reports a response that was received but cannot be audited:
// a status outside 2xx or a body that is not HTML.
type StatusError struct {
	StatusCode  int
	ContentType string
}

func (e *StatusError) Error() string {
	if e.BadStatus() {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("non-html response (content-type: %s)", e.ContentType)
}

// BadStatus reports whether the response status itself was not 2xx.
func (e *StatusError) BadStatus() bool {
	return e.StatusCode < 200 || e.StatusCode > 299
}

// Retryable reports whether the same request may succeed later.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
