package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/metrics"
	"github.com/setu-labs/sahayak/pkg/models"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

// Publisher is the transport behind the emitter. The Kafka producer
// implements it.
type Publisher interface {
	PublishNewlyEligible(ctx context.Context, event *NewlyEligibleEvent) error
}

// Emitter builds and publishes eligibility events.
type Emitter struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewEmitter creates a new event emitter.
func NewEmitter(publisher Publisher, logger *zap.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger.With(zap.String("component", "emitter")),
	}
}

// EmitNewlyEligible emits one newly-eligible event for a sweep finding.
func (e *Emitter) EmitNewlyEligible(ctx context.Context, sweepID, profileID string, match models.SchemeMatch) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitNewlyEligible")
	defer span.End()

	event := &NewlyEligibleEvent{
		SchemaVersion: SchemaVersion,
		SweepID:       sweepID,
		ProfileID:     profileID,
		SchemeID:      match.SchemeID,
		SchemeName:    match.SchemeName,
		Details: MatchDetails{
			Score:           match.Score,
			BenefitAmount:   match.BenefitAmount,
			NearestDeadline: match.NearestDeadline,
			Confidence:      string(match.Confidence),
		},
		Timestamp: time.Now().UTC(),
	}

	if err := e.publisher.PublishNewlyEligible(ctx, event); err != nil {
		e.logger.Error("failed to emit newly-eligible event",
			zap.String("profile_id", profileID), zap.String("scheme_id", match.SchemeID), zap.Error(err))
		return err
	}

	metrics.NewlyEligibleEvents.Inc()
	return nil
}
