package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultSchedule runs a cycle before the market opens, after it closes and in the evening, Taipei time.
var DefaultSchedule = []string{
	"CRON_TZ=Asia/Taipei 30 7 * * *",
	"CRON_TZ=Asia/Taipei 30 13 * * *",
	"CRON_TZ=Asia/Taipei 0 18 * * *",
}

type cycleRunner interface {
	RunOnce(ctx context.Context) (*Report, error)
}

// Scheduler triggers RunOnce on cron specs.
type Scheduler struct {
	cron   *cron.Cron
	runner cycleRunner
}

func NewScheduler(runner cycleRunner, specs []string) (*Scheduler, error) {
	if len(specs) == 0 {
		specs = DefaultSchedule
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{}))),
		runner: runner,
	}
	for _, spec := range specs {
		if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
			return nil, fmt.Errorf("failed to schedule %q: %w", spec, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	log.Info().Int("entries", len(s.cron.Entries())).Msg("scheduler started")
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) tick() {
	report, err := s.runner.RunOnce(context.Background())
	switch {
	case errors.Is(err, ErrBusy):
		log.Info().Msg("previous cycle still running; skipping scheduled run")
	case err != nil:
		log.Error().Err(err).Msg("scheduled cycle failed")
	case report != nil && report.Pass != nil:
		log.Info().
			Str("run_id", report.Pass.RunID).
			Int("deleted", len(report.Pass.Deleted)).
			Int("survivors", report.Pass.Survivors).
			Msg("scheduled cycle finished")
	}
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
