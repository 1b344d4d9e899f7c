// Package sweep drives background re-evaluation: targeted sweeps after a
// scheme's criteria change and catalog-wide batched sweeps when a new scheme
// activates. Sweeps share the interpreter's rate budget with interactive
// traffic and never run on the request-serving path.
package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/events"
	"github.com/setu-labs/sahayak/pkg/metrics"
	"github.com/setu-labs/sahayak/pkg/models"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

// Matcher is the orchestrator surface the sweeper drives.
type Matcher interface {
	Match(ctx context.Context, profile *models.Profile, query models.MatchQuery) (*models.MatchResult, error)
}

// ProfileSource loads profiles for re-evaluation.
type ProfileSource interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ListProfileIDs(ctx context.Context) ([]string, error)
}

// EligibilityHistory answers what a profile was previously eligible for, so
// the sweeper can emit only newly-eligible transitions.
type EligibilityHistory interface {
	EligibleSchemes(ctx context.Context, profileID string) (map[string]bool, error)
}

// Config tunes sweep execution.
type Config struct {
	Workers            int
	BatchSize          int
	CompletionDeadline time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:            4,
		BatchSize:          100,
		CompletionDeadline: 24 * time.Hour,
	}
}

// Sweeper re-evaluates batches of profiles on a bounded worker pool.
// Cancellation is cooperative at batch boundaries: an in-flight profile is
// finished, the next batch is not started.
type Sweeper struct {
	pool     *ants.Pool
	profiles ProfileSource
	matcher  Matcher
	history  EligibilityHistory
	emitter  *events.Emitter
	cfg      Config
	logger   *zap.Logger
}

// NewSweeper creates a sweeper with its own bounded worker pool.
func NewSweeper(
	profiles ProfileSource,
	matcher Matcher,
	history EligibilityHistory,
	emitter *events.Emitter,
	cfg Config,
	logger *zap.Logger,
) (*Sweeper, error) {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}
	return &Sweeper{
		pool:     pool,
		profiles: profiles,
		matcher:  matcher,
		history:  history,
		emitter:  emitter,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "sweeper")),
	}, nil
}

// Close releases the worker pool.
func (s *Sweeper) Close() {
	s.pool.Release()
}

// Run re-evaluates the given profiles in batches under the completion
// deadline. Returns the context error if cancelled between batches.
func (s *Sweeper) Run(ctx context.Context, sweepID string, profileIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "sweep.Sweeper.Run")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CompletionDeadline)
	defer cancel()

	log := s.logger.With(zap.String("sweep_id", sweepID), zap.Int("profiles", len(profileIDs)))
	log.Info("sweep started")

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	for start := 0; start < len(profileIDs); start += batchSize {
		if err := ctx.Err(); err != nil {
			log.Warn("sweep cancelled at batch boundary", zap.Int("completed", start))
			return err
		}

		end := start + batchSize
		if end > len(profileIDs) {
			end = len(profileIDs)
		}

		var wg sync.WaitGroup
		for _, profileID := range profileIDs[start:end] {
			id := profileID
			wg.Add(1)
			if err := s.pool.Submit(func() {
				defer wg.Done()
				s.evaluateProfile(ctx, sweepID, id)
			}); err != nil {
				wg.Done()
				log.Error("failed to submit sweep task", zap.String("profile_id", id), zap.Error(err))
			}
		}
		wg.Wait()
	}

	log.Info("sweep complete")
	return nil
}

// RunAll sweeps every known profile, used when a new scheme becomes active.
func (s *Sweeper) RunAll(ctx context.Context, sweepID string) error {
	ids, err := s.profiles.ListProfileIDs(ctx)
	if err != nil {
		return err
	}
	return s.Run(ctx, sweepID, ids)
}

func (s *Sweeper) evaluateProfile(ctx context.Context, sweepID, profileID string) {
	log := s.logger.With(zap.String("sweep_id", sweepID), zap.String("profile_id", profileID))

	prior := map[string]bool{}
	if s.history != nil {
		known, err := s.history.EligibleSchemes(ctx, profileID)
		if err != nil {
			log.Warn("failed to load prior eligibility, treating all matches as new", zap.Error(err))
		} else {
			prior = known
		}
	}

	profile, err := s.profiles.GetProfile(ctx, profileID)
	if err != nil {
		log.Warn("failed to load profile, skipping", zap.Error(err))
		return
	}

	result, err := s.matcher.Match(ctx, profile, models.MatchQuery{})
	if err != nil {
		log.Warn("sweep match failed, skipping profile", zap.Error(err))
		return
	}
	metrics.SweepProfilesEvaluated.Inc()

	for _, match := range result.Primary {
		if prior[match.SchemeID] {
			continue
		}
		if err := s.emitter.EmitNewlyEligible(ctx, sweepID, profileID, match); err != nil {
			log.Warn("failed to emit newly-eligible event", zap.String("scheme_id", match.SchemeID), zap.Error(err))
		}
	}
}
