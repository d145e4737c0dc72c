// Package poller keeps a local view of the pending join requests fresh by
// fetching them on a fixed interval.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
)

const DefaultInterval = 5 * time.Second

// FetchFunc loads the current pending list.
type FetchFunc func(ctx context.Context) ([]*models.Notification, error)

type Poller struct {
	Fetch    FetchFunc
	Interval time.Duration
	// OnUpdate receives every successful fetch, newest first.
	OnUpdate func([]*models.Notification)
	Logger   *zerolog.Logger

	once    sync.Once
	refresh chan struct{}
}

func (p *Poller) init() {
	p.once.Do(func() {
		p.refresh = make(chan struct{}, 1)
	})
}

// Refresh asks Run for an extra fetch. Calls made while one is queued are merged.
func (p *Poller) Refresh() {
	p.init()
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Run fetches immediately, then on every tick and Refresh, until ctx is done.
// Fetch errors are logged and the loop carries on.
func (p *Poller) Run(ctx context.Context) error {
	p.init()

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		case <-p.refresh:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	list, err := p.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger().Debug().Err(err).Msg("fetch pending notifications failed")
		}
		return
	}
	models.SortNewestFirst(list)
	if p.OnUpdate != nil {
		p.OnUpdate(list)
	}
}

func (p *Poller) logger() *zerolog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return &log.Logger
}
