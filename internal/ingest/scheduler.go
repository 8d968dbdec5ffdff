package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the ingester on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	ingester *Ingester
	sources  []Source
	log      zerolog.Logger
}

// NewScheduler wires an ingester to a cron schedule. spec is a standard
// five-field cron expression, e.g. "0 6 * * *" for daily at 06:00.
func NewScheduler(ingester *Ingester, sources []Source, spec string, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		ingester: ingester,
		sources:  sources,
		log:      log.With().Str("component", "ingest-scheduler").Logger(),
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduled runs. Non-blocking.
func (s *Scheduler) Start() {
	s.log.Info().Int("sources", len(s.sources)).Msg("ingest schedule started")
	s.cron.Start()
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("ingest schedule stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	results := s.ingester.RunAll(ctx, s.sources)
	total := 0
	for _, r := range results {
		total += r.Appended
	}
	s.log.Info().Int("observations", total).Msg("scheduled ingest complete")
}
