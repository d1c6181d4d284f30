// Package scheduler periodically re-runs the allocate orchestration for
// candidate sets flagged for recurring recomputation (e.g. nightly
// re-pricing against refreshed scenarios supplied by the caller).
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/kellyfolio/internal/history"
	"github.com/aristath/kellyfolio/internal/kelly"
)

// CandidateSetProvider supplies the inputs due for scheduled recomputation.
// The scheduler does not fetch market data itself; it only re-invokes
// Allocate on a timer against whatever the provider currently returns.
type CandidateSetProvider func(ctx context.Context) ([]kelly.AllocationInput, error)

// Scheduler wraps a robfig/cron/v3 runner around one recurring recompute job.
type Scheduler struct {
	cron     *cron.Cron
	log      zerolog.Logger
	store    *history.Store
	provider CandidateSetProvider
	cfg      kelly.SolverConfig
}

// New builds a Scheduler. schedule is a standard 5-field cron expression;
// an empty schedule means recomputation is disabled and Start is a no-op.
func New(schedule string, provider CandidateSetProvider, store *history.Store, cfg kelly.SolverConfig, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		log:      log.With().Str("component", "scheduler").Logger(),
		store:    store,
		provider: provider,
		cfg:      cfg,
	}

	if schedule == "" {
		return s, nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the cron runner. A no-op if no schedule was configured.
func (s *Scheduler) Start() {
	if s.cron != nil {
		s.cron.Start()
	}
}

// Stop waits for any in-flight job to finish and halts the cron runner.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	inputs, err := s.provider(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch candidate sets for scheduled recomputation")
		return
	}

	for _, input := range inputs {
		runID := uuid.NewString()
		response, validation, err := kelly.Allocate(input, s.cfg)

		run := history.Run{ID: runID, RequestedAt: time.Now().UTC()}
		switch {
		case err != nil:
			code := "internal-error"
			if kerr, ok := err.(*kelly.Error); ok {
				code = kerr.Code
			}
			run.ErrorCode = &code
			s.log.Warn().Err(err).Str("run_id", runID).Msg("scheduled recomputation failed")
		case validation.HasErrors():
			code := "validation-blocked"
			run.ErrorCode = &code
			s.log.Warn().Str("run_id", runID).Msg("scheduled recomputation input failed validation")
		default:
			fractions := make(map[string]float64, len(response.Allocations))
			for _, a := range response.Allocations {
				fractions[a.Ticker] = a.Fraction
			}
			run.Fractions = fractions
			run.ExpectedReturn = &response.ExpectedReturn
		}

		if err := s.store.Save(ctx, run); err != nil {
			s.log.Error().Err(err).Str("run_id", runID).Msg("failed to persist scheduled recomputation run")
		}
	}
}
