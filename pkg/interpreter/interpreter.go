// Package interpreter turns a scheme's free-text eligibility clause into
// normalized predicates the rule evaluator can consume. It is the single
// suspension point that calls an external reasoning capability; every failure
// path degrades to a low-confidence result rather than propagating upward.
package interpreter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/setu-labs/sahayak/pkg/metrics"
	"github.com/setu-labs/sahayak/pkg/models"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

// Config tunes the interpreter's degrade behavior.
type Config struct {
	MinConfidence float64       // below this, predicates are discarded and confidence is Low (default 0.6)
	Timeout       time.Duration // bound on a single provider call
	CacheTTL      time.Duration // interpreted predicates live this long
	RateLimit     rate.Limit    // provider calls per second, shared with sweeps
	RateBurst     int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.6,
		Timeout:       15 * time.Second,
		CacheTTL:      24 * time.Hour,
		RateLimit:     5,
		RateBurst:     5,
	}
}

// Interpreter caches confidence-tagged interpretations keyed by
// (schemeID, version, text-hash). The cache is the engine's only shared
// mutable state: go-cache is safe under concurrent access and a miss race
// costs duplicate provider work, never corruption.
type Interpreter struct {
	provider Provider
	cache    *gocache.Cache
	breaker  *gobreaker.CircuitBreaker[*Interpretation]
	limiter  *rate.Limiter
	cfg      Config
	logger   *zap.Logger
}

// New creates an interpreter around the given provider.
func New(provider Provider, cfg Config, limiter *rate.Limiter, logger *zap.Logger) *Interpreter {
	breaker := gobreaker.NewCircuitBreaker[*Interpretation](gobreaker.Settings{
		Name:    "criteria-interpreter",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	if limiter == nil {
		limiter = rate.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return &Interpreter{
		provider: provider,
		cache:    gocache.New(cfg.CacheTTL, cfg.CacheTTL/2),
		breaker:  breaker,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "interpreter")),
	}
}

// Interpret returns the predicates derived from the scheme's custom rules text
// plus the confidence level the orchestrator should attach to the scheme.
// A scheme without custom rules is High confidence with no extra predicates.
func (i *Interpreter) Interpret(ctx context.Context, scheme *models.Scheme) ([]models.EligibilityPredicate, models.ConfidenceLevel) {
	ctx, span := tracing.StartSpan(ctx, "interpreter.Interpret")
	defer span.End()

	text := strings.TrimSpace(scheme.Criteria.CustomRules)
	if text == "" {
		return nil, models.ConfidenceHigh
	}

	key := cacheKey(scheme.ID, scheme.Version, text)
	if cached, ok := i.cache.Get(key); ok {
		metrics.InterpreterCacheHits.Inc()
		return i.grade(cached.(*Interpretation))
	}
	metrics.InterpreterCacheMisses.Inc()

	log := i.logger.With(zap.String("scheme_id", scheme.ID), zap.Int("version", scheme.Version))

	if err := i.limiter.Wait(ctx); err != nil {
		log.Warn("rate limit wait aborted, degrading to low confidence", zap.Error(err))
		return nil, models.ConfidenceLow
	}

	result, err := i.breaker.Execute(func() (*Interpretation, error) {
		callCtx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
		defer cancel()
		return i.provider.InterpretCriteria(callCtx, text)
	})
	if err != nil {
		// Treat remaining criteria as unknown: surface the scheme with a
		// caveat rather than dropping it or failing the match.
		log.Warn("interpretation degraded", zap.Error(err))
		return nil, models.ConfidenceLow
	}

	// Idempotent upsert; concurrent misses write identical values.
	i.cache.Set(key, result, gocache.DefaultExpiration)

	return i.grade(result)
}

// grade applies the confidence threshold: below it, a partially-understood
// scheme keeps zero interpreted predicates and is flagged Low.
func (i *Interpreter) grade(in *Interpretation) ([]models.EligibilityPredicate, models.ConfidenceLevel) {
	if in.Confidence < i.cfg.MinConfidence || len(in.Predicates) == 0 {
		return nil, models.ConfidenceLow
	}
	kept := make([]models.EligibilityPredicate, 0, len(in.Predicates))
	for _, p := range in.Predicates {
		if p.Confidence >= i.cfg.MinConfidence {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, models.ConfidenceLow
	}
	return kept, models.ConfidenceMedium
}

// Invalidate drops all cached interpretations for a scheme. Called when a
// scheme's version bumps; the new version would miss anyway since the version
// is part of the key, but eager eviction keeps the cache small.
func (i *Interpreter) Invalidate(schemeID string) {
	prefix := schemeID + "|"
	for key := range i.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			i.cache.Delete(key)
		}
	}
}

func cacheKey(schemeID string, version int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s|%d|%s", schemeID, version, hex.EncodeToString(sum[:]))
}
