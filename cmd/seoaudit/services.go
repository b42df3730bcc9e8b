package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rmn-raj/seo-tool/config"
	"github.com/rmn-raj/seo-tool/engine"
	"github.com/rmn-raj/seo-tool/scraper"
)

// services is the retrieval stack shared by serve and analyze.
type services struct {
	dispatcher *engine.Dispatcher
	scraper    *scraper.Scraper // nil when the browser is disabled
	memory     *engine.DomainMemory
}

func buildServices(cfg *config.Config) (*services, error) {
	var sc *scraper.Scraper
	if cfg.Browser.Enabled {
		var err error
		sc, err = scraper.New(cfg.Browser, cfg.Fetch)
		if err != nil {
			return nil, fmt.Errorf("initialise browser: %w", err)
		}
	}

	engines := []engine.Engine{
		engine.NewHTTPEngine(engine.HTTPConfig{
			UserAgent:    cfg.Fetch.UserAgent,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
			Retry: engine.RetryConfig{
				MaxRetries:      cfg.Fetch.MaxRetries,
				InitialInterval: cfg.Fetch.RetryInitialInterval,
				MaxInterval:     cfg.Fetch.RetryMaxInterval,
			},
		}),
	}
	if sc != nil {
		// sc.Fetch bypasses the dispatcher, so engine/ never imports scraper/.
		engines = append(engines,
			engine.NewRodEngine(sc.Fetch, false),
			engine.NewRodEngine(sc.Fetch, true),
		)
	}

	memory := engine.NewDomainMemory(cfg.Engine.DomainMemoryTTL, time.Hour)
	d := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)
	slog.Debug("dispatcher ready",
		"engines", d.Engines(),
		"delays", cfg.Engine.EscalationDelays,
	)

	return &services{dispatcher: d, scraper: sc, memory: memory}, nil
}

// Close stops the domain memory janitor, drains the page pool and kills Chrome.
func (s *services) Close() {
	s.memory.Stop()
	s.scraper.Close()
}
