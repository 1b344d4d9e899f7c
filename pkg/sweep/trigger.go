package sweep

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/events"
	"github.com/setu-labs/sahayak/pkg/kafka"
	"github.com/setu-labs/sahayak/pkg/models"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

// SchemeSource loads schemes when refreshing the catalog snapshot.
type SchemeSource interface {
	GetScheme(ctx context.Context, id string) (*models.Scheme, error)
}

// CatalogSnapshot is the locally cached catalog the trigger keeps current.
type CatalogSnapshot interface {
	Upsert(s models.Scheme)
	Remove(schemeID string)
}

// CacheInvalidator evicts interpreted predicates when a scheme changes.
type CacheInvalidator interface {
	Invalidate(schemeID string)
}

// SweepHistory scopes targeted sweeps using prior evaluation records.
type SweepHistory interface {
	ProfilesEvaluatedAgainst(ctx context.Context, schemeID string) ([]string, error)
	NearMissProfiles(ctx context.Context, schemeID string, maxMissing int) ([]string, error)
}

// Trigger reacts to catalog and profile mutations, scheduling targeted
// re-matches instead of full catalog scans where possible.
type Trigger struct {
	logger      *zap.Logger
	sweeper     *Sweeper
	schemes     SchemeSource
	snapshot    CatalogSnapshot
	history     SweepHistory
	cache       CacheInvalidator
	nearMissMax int
}

// NewTrigger creates a re-evaluation trigger.
func NewTrigger(
	logger *zap.Logger,
	sweeper *Sweeper,
	schemes SchemeSource,
	snapshot CatalogSnapshot,
	history SweepHistory,
	cache CacheInvalidator,
	nearMissMax int,
) *Trigger {
	return &Trigger{
		logger:      logger.With(zap.String("component", "trigger")),
		sweeper:     sweeper,
		schemes:     schemes,
		snapshot:    snapshot,
		history:     history,
		cache:       cache,
		nearMissMax: nearMissMax,
	}
}

// HandleMessage adapts the Kafka consumer to change events.
func (t *Trigger) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ev, err := events.ParseChangeEvent(msg.Value)
	if err != nil {
		return fmt.Errorf("failed to parse change event: %w", err)
	}
	return t.HandleChange(ctx, ev)
}

// HandleChange dispatches one change notification. Sweeps run in the
// background; the handler returns as soon as the sweep is scheduled.
func (t *Trigger) HandleChange(ctx context.Context, ev *events.ChangeEvent) error {
	ctx, span := tracing.StartSpan(ctx, "sweep.Trigger.HandleChange")
	defer span.End()

	log := t.logger.With(zap.String("event_type", ev.EventType),
		zap.String("scheme_id", ev.SchemeID), zap.String("profile_id", ev.ProfileID))

	switch ev.EventType {
	case events.TypeSchemeUpdated:
		t.cache.Invalidate(ev.SchemeID)
		if err := t.refreshScheme(ctx, ev.SchemeID); err != nil {
			log.Warn("failed to refresh scheme snapshot", zap.Error(err))
		}
		profileIDs, err := t.targetProfiles(ctx, ev.SchemeID)
		if err != nil {
			return err
		}
		if len(profileIDs) == 0 {
			log.Debug("no previously evaluated profiles, nothing to sweep")
			return nil
		}
		t.schedule(ctx, log, profileIDs)
		return nil

	case events.TypeSchemeCreated:
		if err := t.refreshScheme(ctx, ev.SchemeID); err != nil {
			log.Warn("failed to refresh scheme snapshot", zap.Error(err))
		}
		// A new active scheme sweeps all profiles, batched, under the
		// sweeper's completion deadline.
		sweepID := uuid.New().String()
		go func() {
			if err := t.sweeper.RunAll(ctx, sweepID); err != nil {
				log.Warn("catalog sweep ended early", zap.String("sweep_id", sweepID), zap.Error(err))
			}
		}()
		return nil

	case events.TypeSchemeDeactivated:
		t.snapshot.Remove(ev.SchemeID)
		t.cache.Invalidate(ev.SchemeID)
		log.Info("scheme removed from snapshot")
		return nil

	case events.TypeProfileUpdated:
		t.schedule(ctx, log, []string{ev.ProfileID})
		return nil

	default:
		log.Debug("ignoring unknown event type")
		return nil
	}
}

// targetProfiles bounds sweep cost: every profile previously scored against
// this scheme, or, when that set is unavailable, only prior near-misses.
func (t *Trigger) targetProfiles(ctx context.Context, schemeID string) ([]string, error) {
	profileIDs, err := t.history.ProfilesEvaluatedAgainst(ctx, schemeID)
	if err == nil && len(profileIDs) > 0 {
		return profileIDs, nil
	}
	if err != nil {
		t.logger.Warn("evaluated-profile set unavailable, falling back to near-miss profiles",
			zap.String("scheme_id", schemeID), zap.Error(err))
	}
	return t.history.NearMissProfiles(ctx, schemeID, t.nearMissMax)
}

func (t *Trigger) refreshScheme(ctx context.Context, schemeID string) error {
	scheme, err := t.schemes.GetScheme(ctx, schemeID)
	if err != nil {
		return err
	}
	if !scheme.IsActive {
		t.snapshot.Remove(scheme.ID)
		return nil
	}
	t.snapshot.Upsert(*scheme)
	return nil
}

func (t *Trigger) schedule(ctx context.Context, log *zap.Logger, profileIDs []string) {
	sweepID := uuid.New().String()
	log.Info("scheduling sweep", zap.String("sweep_id", sweepID), zap.Int("profiles", len(profileIDs)))
	go func() {
		if err := t.sweeper.Run(ctx, sweepID, profileIDs); err != nil {
			log.Warn("sweep ended early", zap.String("sweep_id", sweepID), zap.Error(err))
		}
	}()
}
