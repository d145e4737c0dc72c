package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-discuss/internal/logger"
	"github.com/Marga-Ghale/ora-discuss/internal/service"
)

const DefaultPurgeSpec = "0 3 * * *"

// ClientCounter reports live websocket connections.
type ClientCounter interface {
	GetConnectedClientsCount() int
}

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron      *cron.Cron
	ledger    service.LedgerService
	clients   ClientCounter
	retention time.Duration
	purgeSpec string
	log       zerolog.Logger
}

// NewScheduler purges resolved join requests older than retentionDays on
// purgeSpec. clients may be nil.
func NewScheduler(ledger service.LedgerService, clients ClientCounter, retentionDays int, purgeSpec string) *Scheduler {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	if purgeSpec == "" {
		purgeSpec = DefaultPurgeSpec
	}
	return &Scheduler{
		cron:      cron.New(),
		ledger:    ledger,
		clients:   clients,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		purgeSpec: purgeSpec,
		log:       logger.Component("cron"),
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.purgeSpec, func() {
		s.log.Info().Msg("running join request purge")
		s.PurgeResolved(context.Background())
	}); err != nil {
		return err
	}

	if s.clients != nil {
		// Every 15 minutes - connection gauge for the logs
		if _, err := s.cron.AddFunc("*/15 * * * *", s.logConnections); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.log.Info().Str("purge", s.purgeSpec).Dur("retention", s.retention).Msg("scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// PurgeResolved drops accepted and rejected requests past the retention window.
func (s *Scheduler) PurgeResolved(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := s.ledger.Purge(ctx, s.retention)
	if err != nil {
		s.log.Error().Err(err).Msg("join request purge failed")
		return 0
	}
	s.log.Info().Int64("deleted", n).Msg("join request purge finished")
	return n
}

func (s *Scheduler) logConnections() {
	s.log.Info().Int("ws_clients", s.clients.GetConnectedClientsCount()).Msg("connection stats")
}
