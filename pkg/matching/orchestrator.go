// Package matching implements the engine's public entry point: it sequences
// retrieval, rule evaluation, criteria interpretation and scoring for a
// single query, and records evaluation history for targeted re-evaluation.
package matching

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/eligibility"
	"github.com/setu-labs/sahayak/pkg/faults"
	"github.com/setu-labs/sahayak/pkg/metrics"
	"github.com/setu-labs/sahayak/pkg/models"
	"github.com/setu-labs/sahayak/pkg/retrieval"
	"github.com/setu-labs/sahayak/pkg/scoring"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

// queryState tracks a match call through its lifecycle. Degraded is an
// annotation, not a terminal state: a degraded query still completes.
type queryState string

const (
	stateReceived   queryState = "received"
	stateRetrieving queryState = "retrieving"
	stateEvaluating queryState = "evaluating"
	stateScoring    queryState = "scoring"
	stateComplete   queryState = "complete"
)

// CandidateSource produces bounded candidate sets and the snapshot fallback.
type CandidateSource interface {
	Retrieve(ctx context.Context, queryText string, filter retrieval.Filter, topK int) ([]retrieval.Candidate, error)
	SnapshotScan(filter retrieval.Filter, topK int) []retrieval.Candidate
}

// CriteriaInterpreter lowers a scheme's free-text clause into predicates.
type CriteriaInterpreter interface {
	Interpret(ctx context.Context, scheme *models.Scheme) ([]models.EligibilityPredicate, models.ConfidenceLevel)
}

// Evaluation is one (profile, scheme) evaluation record kept for
// re-evaluation fan-out.
type Evaluation struct {
	ProfileID     string
	SchemeID      string
	SchemeVersion int
	MissingCount  int
	Eligible      bool
	EvaluatedAt   time.Time
}

// HistoryRecorder persists evaluation records. Recording is best effort; a
// history failure never fails a match.
type HistoryRecorder interface {
	RecordEvaluation(ctx context.Context, ev Evaluation) error
}

// Config tunes the orchestrator.
type Config struct {
	TopK int
}

// Orchestrator is the engine's synchronous match entry point. Given identical
// (profile, catalog snapshot, query) it is deterministic.
type Orchestrator struct {
	logger    *zap.Logger
	source    CandidateSource
	interp    CriteriaInterpreter
	scorer    *scoring.Scorer
	history   HistoryRecorder
	validate  *validator.Validate
	cfg       Config
	clock     func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock pins the evaluation instant, used by tests for reproducibility.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// NewOrchestrator creates the match orchestrator. history may be nil when no
// re-evaluation fan-out index is configured.
func NewOrchestrator(
	logger *zap.Logger,
	source CandidateSource,
	interp CriteriaInterpreter,
	scorer *scoring.Scorer,
	history HistoryRecorder,
	cfg Config,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		logger:   logger.With(zap.String("component", "orchestrator")),
		source:   source,
		interp:   interp,
		scorer:   scorer,
		history:  history,
		validate: validator.New(),
		cfg:      cfg,
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Match evaluates the profile against retrieved candidates and returns ranked
// primary matches plus, when nothing fully qualifies, near matches. The
// result always carries results, near matches, or an explanation.
func (o *Orchestrator) Match(ctx context.Context, profile *models.Profile, query models.MatchQuery) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Orchestrator.Match")
	defer span.End()

	started := time.Now()
	defer func() { metrics.MatchDuration.Observe(time.Since(started).Seconds()) }()

	if err := o.validateProfile(profile); err != nil {
		metrics.MatchRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}

	log := o.logger.With(zap.String("profile_id", profile.ID))
	log.Debug("match query", zap.String("state", string(stateReceived)))

	now := o.clock()
	filter := retrieval.Filter{Category: query.Category, Now: now}

	log.Debug("match query", zap.String("state", string(stateRetrieving)))
	candidates, err := o.source.Retrieve(ctx, query.Text, filter, o.cfg.TopK)
	if err != nil {
		if !errors.Is(err, faults.ErrRetrievalUnavailable) {
			metrics.MatchRequests.WithLabelValues("error").Inc()
			return nil, err
		}
		// Degraded retrieval backend is never a hard failure: scan the
		// cached catalog snapshot, filter-only.
		log.Warn("retrieval unavailable, falling back to snapshot scan", zap.Error(err))
		metrics.RetrievalFallbacks.Inc()
		candidates = o.source.SnapshotScan(filter, o.cfg.TopK)
	}

	log.Debug("match query", zap.String("state", string(stateEvaluating)), zap.Int("candidates", len(candidates)))

	degraded := false
	evaluated := make([]scoring.Evaluated, 0, len(candidates))
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scheme := candidates[i].Scheme

		preds := eligibility.BuildPredicates(scheme.Criteria)
		interpreted, confidence := o.interp.Interpret(ctx, &scheme)
		preds = append(preds, interpreted...)
		if confidence == models.ConfidenceLow {
			degraded = true
		}

		outcome, err := eligibility.Evaluate(preds, profile)
		if err != nil {
			// Corrupt predicate data excludes this single scheme, not the
			// whole request.
			corrupt := &faults.PredicateCorruptionError{SchemeID: scheme.ID, Reason: err.Error()}
			log.Error("skipping scheme with corrupt predicates", zap.Error(corrupt))
			continue
		}

		evaluated = append(evaluated, scoring.Evaluated{
			Scheme:     scheme,
			Outcome:    outcome,
			Similarity: candidates[i].Similarity,
			Confidence: confidence,
		})
	}

	log.Debug("match query", zap.String("state", string(stateScoring)), zap.Int("evaluated", len(evaluated)))

	primary := o.scorer.RankPrimary(evaluated, now)
	var near []models.SchemeMatch
	if len(primary) == 0 {
		near = o.scorer.NearMatches(evaluated, now)
	}

	o.recordHistory(ctx, profile, evaluated, now)

	result := &models.MatchResult{
		Primary:     primary,
		NearMatches: near,
		Degraded:    degraded,
		Explanation: summarize(len(candidates), primary, near),
	}

	metrics.MatchRequests.WithLabelValues("ok").Inc()
	log.Debug("match query", zap.String("state", string(stateComplete)),
		zap.Int("primary", len(primary)), zap.Int("near", len(near)), zap.Bool("degraded", degraded))
	return result, nil
}

func (o *Orchestrator) validateProfile(profile *models.Profile) error {
	if profile == nil {
		return &faults.ValidationError{Field: "profile", Reason: "profile is required"}
	}
	if err := o.validate.Struct(profile); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &faults.ValidationError{Field: verrs[0].Field(), Reason: verrs[0].Tag()}
		}
		return &faults.ValidationError{Field: "profile", Reason: err.Error()}
	}
	if profile.Location.State == "" {
		return &faults.ValidationError{Field: "location.state", Reason: "required"}
	}
	return nil
}

func (o *Orchestrator) recordHistory(ctx context.Context, profile *models.Profile, evaluated []scoring.Evaluated, now time.Time) {
	if o.history == nil {
		return
	}
	for _, ev := range evaluated {
		rec := Evaluation{
			ProfileID:     profile.ID,
			SchemeID:      ev.Scheme.ID,
			SchemeVersion: ev.Scheme.Version,
			MissingCount:  len(ev.Outcome.Unmet),
			Eligible:      ev.Outcome.Satisfied,
			EvaluatedAt:   now,
		}
		if err := o.history.RecordEvaluation(ctx, rec); err != nil {
			o.logger.Warn("failed to record evaluation history",
				zap.String("profile_id", profile.ID), zap.String("scheme_id", ev.Scheme.ID), zap.Error(err))
		}
	}
}

// summarize guarantees the user-visible response is never a bare empty result
// with no reason.
func summarize(candidateCount int, primary, near []models.SchemeMatch) string {
	switch {
	case len(primary) > 0:
		return ""
	case len(near) > 0:
		return "No scheme fully matched the profile; the closest schemes and their missing criteria are listed."
	case candidateCount == 0:
		return "Insufficient data: no active schemes matched the query filters."
	default:
		return "No eligible or nearly-eligible schemes were found for this profile."
	}
}
