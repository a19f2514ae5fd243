package knowledge

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Refresher rebuilds the blob on a cron schedule so remote pages that change
// upstream are picked up without a restart. A failed rebuild keeps the
// previous blob.
type Refresher struct {
	cron      *cron.Cron
	schedule  cron.Schedule
	base      *Base
	rebuild   func(context.Context) (*Blob, error)
	log       zerolog.Logger
	onRefresh func(*Blob)
}

type RefreshOption func(*Refresher)

func WithRefreshLogger(l zerolog.Logger) RefreshOption {
	return func(r *Refresher) { r.log = l }
}

// OnRefresh registers a callback run after every successful rebuild.
func OnRefresh(fn func(*Blob)) RefreshOption {
	return func(r *Refresher) { r.onRefresh = fn }
}

// NewRefresher validates spec, a standard five-field cron expression or a
// descriptor such as "@every 6h" or "@daily".
func NewRefresher(spec string, base *Base, rebuild func(context.Context) (*Blob, error), opts ...RefreshOption) (*Refresher, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("knowledge.refresh %q: %w", spec, err)
	}
	r := &Refresher{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule: sched,
		base:     base,
		rebuild:  rebuild,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run runs the schedule until ctx is done. Rebuilds get ctx too, so a
// rebuild in flight is cancelled rather than waited out.
func (r *Refresher) Run(ctx context.Context) {
	r.cron.Schedule(r.schedule, cron.FuncJob(func() { r.refresh(ctx) }))
	r.cron.Start()
	r.log.Info().Msg("scheduled knowledge refresh started")
	<-ctx.Done()
	<-r.cron.Stop().Done()
}

func (r *Refresher) refresh(ctx context.Context) {
	blob, err := r.rebuild(ctx)
	if err != nil {
		if ctx.Err() != nil {
			r.log.Debug().Err(err).Msg("scheduled rebuild cancelled")
			return
		}
		r.log.Error().Err(err).Msg("scheduled rebuild failed, keeping previous blob")
		return
	}
	r.base.Replace(blob)
	r.log.Info().Int("bytes", len(blob.Text)).Int("degraded", len(blob.Degraded())).Msg("knowledge blob refreshed")
	if r.onRefresh != nil {
		r.onRefresh(blob)
	}
}
