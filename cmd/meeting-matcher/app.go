package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/internal/match"
	"github.com/pdiddy/meeting-matcher/internal/metrics"
	"github.com/pdiddy/meeting-matcher/internal/normalize"
	"github.com/pdiddy/meeting-matcher/internal/pipeline"
	"github.com/pdiddy/meeting-matcher/internal/source"
	"github.com/pdiddy/meeting-matcher/internal/transcriptcache"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

// app holds the components shared by the commands.
type app struct {
	cfg      types.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	source   source.Source
	pipeline *pipeline.Pipeline
	cache    *transcriptcache.Store
}

// newApp loads the configuration and wires the source, cache, and pipeline.
func newApp() (*app, error) {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return nil, err
	}
	return buildApp(cfg, appLog)
}

func buildApp(cfg types.Config, log logging.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client, err := source.New(cfg.Source, source.WithMetrics(m), source.WithLogger(log))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, registry: reg, metrics: m, source: client}
	if cfg.Pipeline.CachePath != "" {
		store, err := transcriptcache.Open(cfg.Pipeline.CachePath)
		if err != nil {
			return nil, err
		}
		a.cache = store
		a.source = transcriptcache.Wrap(client, store, m, log)
		log.Debug("transcript cache enabled", logging.F("path", cfg.Pipeline.CachePath))
	}

	a.pipeline = pipeline.New(a.source, newMatcher(cfg.Match),
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithDefaultLimit(cfg.Pipeline.DefaultLimit),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(log))
	return a, nil
}

func newMatcher(cfg types.MatchConfig) *match.Matcher {
	return match.New(normalize.New(cfg.ExtraStopWords...))
}

// Close releases the transcript cache.
func (a *app) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}
