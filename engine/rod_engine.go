package engine

import (
	"context"
	"fmt"
)

// RodFetchFunc renders a page in a headless browser. It is injected from
// the scraper package so engine/ does not import it.
type RodFetchFunc func(ctx context.Context, req *FetchRequest) (*FetchResult, error)

// RodEngine is a browser-based engine. The forceStealth flag distinguishes
// the plain "rod" tier from "rod-stealth".
type RodEngine struct {
	fetchFunc    RodFetchFunc
	forceStealth bool
	name         string
}

// NewRodEngine creates a RodEngine around fetchFunc.
func NewRodEngine(fetchFunc RodFetchFunc, forceStealth bool) *RodEngine {
	name := "rod"
	if forceStealth {
		name = "rod-stealth"
	}
	return &RodEngine{
		fetchFunc:    fetchFunc,
		forceStealth: forceStealth,
		name:         name,
	}
}

func (e *RodEngine) Name() string { return e.name }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.fetchFunc == nil {
		return nil, fmt.Errorf("%s: fetchFunc not configured", e.name)
	}

	r := *req
	if e.forceStealth {
		r.Stealth = true
	}

	result, err := e.fetchFunc(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}

	// A rendered error page is still an error page.
	if se := (&StatusError{StatusCode: result.StatusCode}); se.BadStatus() {
		return nil, fmt.Errorf("%s: %w", e.name, se)
	}

	result.EngineName = e.name
	return result, nil
}
