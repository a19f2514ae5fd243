package main

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gipl/gipl-assistant/internal/chat"
	"github.com/gipl/gipl-assistant/internal/config"
	"github.com/gipl/gipl-assistant/internal/knowledge"
	"github.com/gipl/gipl-assistant/internal/metrics"
	"github.com/gipl/gipl-assistant/internal/provider"
	"github.com/gipl/gipl-assistant/internal/responder"
	"github.com/gipl/gipl-assistant/internal/server"
	"github.com/gipl/gipl-assistant/internal/store"
)

// app is the wired assistant: extractor, knowledge base and chat service.
type app struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	extractor *knowledge.Extractor
	base      *knowledge.Base
	chat      *chat.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := metrics.New()

	chatProvider, err := provider.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	x, err := newExtractor(cfg, m)
	if err != nil {
		return nil, err
	}

	blob, err := loadBlob(ctx, cfg, x)
	if err != nil {
		return nil, err
	}
	m.BlobSize(len(blob.Text))
	base := knowledge.NewBase(blob)

	overrides := make([]responder.Override, len(cfg.Knowledge.Overrides))
	for i, o := range cfg.Knowledge.Overrides {
		overrides[i] = responder.Override{Keywords: o.Keywords, Document: o.Document}
	}
	r := responder.New(cfg.Assistant.Name, chatProvider, x,
		responder.WithGreetings(cfg.Assistant.Greetings),
		responder.WithOverrides(overrides),
		responder.WithLogger(log.Logger.With().Str("component", "responder").Logger()),
		responder.WithMetrics(m),
	)

	sessions := store.NewMemoryStore(
		store.WithMaxSessions(cfg.Server.MaxSessions),
		store.WithIdleTTL(cfg.Server.SessionTTL),
	)

	return &app{
		cfg:       cfg,
		metrics:   m,
		extractor: x,
		base:      base,
		chat:      chat.NewService(base, r, sessions),
	}, nil
}

func newExtractor(cfg *config.Config, m *metrics.Metrics) (*knowledge.Extractor, error) {
	pdf, err := knowledge.NewPDFReader(cfg.Knowledge.PDFEngine)
	if err != nil {
		return nil, err
	}
	web := knowledge.NewWebFetcher(
		knowledge.WithTimeout(cfg.Knowledge.FetchTimeout),
		knowledge.WithUserAgent(cfg.Knowledge.UserAgent),
	)
	return knowledge.NewExtractor(pdf, web,
		knowledge.WithConcurrency(cfg.Knowledge.FetchConcurrency),
		knowledge.WithLogger(log.Logger.With().Str("component", "knowledge").Logger()),
		knowledge.WithMetrics(m),
	), nil
}

// loadBlob reads the configured snapshot when one exists, otherwise it
// extracts every source.
func loadBlob(ctx context.Context, cfg *config.Config, x *knowledge.Extractor) (*knowledge.Blob, error) {
	if path := cfg.Knowledge.Snapshot; path != "" {
		blob, err := knowledge.LoadSnapshot(path)
		switch {
		case err == nil:
			log.Info().Str("path", path).Int("bytes", len(blob.Text)).Msg("knowledge loaded from snapshot")
			return blob, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
		log.Warn().Str("path", path).Msg("snapshot not found, extracting sources")
	}
	return x.Build(ctx, cfg.Sources())
}

// watch rebuilds the blob in the background whenever a local document
// changes. It stops with ctx.
func (a *app) watch(ctx context.Context) error {
	w, err := knowledge.NewWatcher(a.base, a.cfg.Knowledge.Documents,
		func(ctx context.Context) (*knowledge.Blob, error) {
			return a.extractor.Build(ctx, a.cfg.Sources())
		},
		knowledge.WithWatchLogger(log.Logger.With().Str("component", "watcher").Logger()),
		knowledge.OnReload(func(b *knowledge.Blob) { a.metrics.BlobSize(len(b.Text)) }),
	)
	if err != nil {
		return err
	}
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("document watcher stopped")
		}
	}()
	return nil
}

// refresh rebuilds the blob on the configured cron schedule until ctx is
// done.
func (a *app) refresh(ctx context.Context) error {
	r, err := knowledge.NewRefresher(a.cfg.Knowledge.Refresh, a.base,
		func(ctx context.Context) (*knowledge.Blob, error) {
			return a.extractor.Build(ctx, a.cfg.Sources())
		},
		knowledge.WithRefreshLogger(log.Logger.With().Str("component", "refresh").Logger()),
		knowledge.OnRefresh(func(b *knowledge.Blob) { a.metrics.BlobSize(len(b.Text)) }),
	)
	if err != nil {
		return err
	}
	go r.Run(ctx)
	return nil
}

func (a *app) server() *server.Server {
	return server.New(a.chat,
		server.WithLogger(log.Logger.With().Str("component", "http").Logger()),
		server.WithMetrics(a.metrics),
		server.WithAllowedOrigins(a.cfg.Server.AllowedOrigins),
	)
}
