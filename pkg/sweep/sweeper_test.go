package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/events"
	"github.com/setu-labs/sahayak/pkg/models"
)

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	loaded   []string
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, id)
	p, ok := f.profiles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (f *fakeProfiles) ListProfileIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.profiles))
	for id := range f.profiles {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeProfiles) loadedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loaded)
}

type fakeMatcher struct {
	mu      sync.Mutex
	results map[string]*models.MatchResult
}

func (f *fakeMatcher) Match(ctx context.Context, profile *models.Profile, query models.MatchQuery) (*models.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.results[profile.ID]; ok {
		return r, nil
	}
	return &models.MatchResult{}, nil
}

type fakeEligibility struct {
	prior map[string]map[string]bool
}

func (f *fakeEligibility) EligibleSchemes(ctx context.Context, profileID string) (map[string]bool, error) {
	return f.prior[profileID], nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []*events.NewlyEligibleEvent
}

func (c *capturingPublisher) PublishNewlyEligible(ctx context.Context, event *events.NewlyEligibleEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingPublisher) published() []*events.NewlyEligibleEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*events.NewlyEligibleEvent, len(c.events))
	copy(out, c.events)
	return out
}

func testProfile(id string) *models.Profile {
	return &models.Profile{
		ID:       id,
		Age:      65,
		Gender:   models.GenderFemale,
		Location: models.Location{State: "Maharashtra"},
		Caste:    models.CasteOBC,
	}
}

func primaryMatch(schemeID string) *models.MatchResult {
	return &models.MatchResult{
		Primary: []models.SchemeMatch{{
			SchemeID:   schemeID,
			SchemeName: "Scheme " + schemeID,
			Score:      0.9,
			Rank:       1,
			Confidence: models.ConfidenceHigh,
		}},
	}
}

func TestSweeperRun(t *testing.T) {
	ctx := context.Background()

	t.Run("emits only newly-eligible transitions", func(t *testing.T) {
		profiles := &fakeProfiles{profiles: map[string]*models.Profile{
			"p1": testProfile("p1"),
			"p2": testProfile("p2"),
		}}
		matcher := &fakeMatcher{results: map[string]*models.MatchResult{
			"p1": primaryMatch("s1"),
			"p2": primaryMatch("s1"),
		}}
		// p2 was already eligible for s1; only p1 is a transition.
		history := &fakeEligibility{prior: map[string]map[string]bool{
			"p2": {"s1": true},
		}}
		publisher := &capturingPublisher{}
		emitter := events.NewEmitter(publisher, zap.NewNop())

		s, err := NewSweeper(profiles, matcher, history, emitter, DefaultConfig(), zap.NewNop())
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.Run(ctx, "sweep-1", []string{"p1", "p2"}))

		got := publisher.published()
		require.Len(t, got, 1)
		assert.Equal(t, "p1", got[0].ProfileID)
		assert.Equal(t, "s1", got[0].SchemeID)
		assert.Equal(t, "sweep-1", got[0].SweepID)
		assert.Equal(t, events.SchemaVersion, got[0].SchemaVersion)
	})

	t.Run("missing profile is skipped without failing the sweep", func(t *testing.T) {
		profiles := &fakeProfiles{profiles: map[string]*models.Profile{
			"p1": testProfile("p1"),
		}}
		publisher := &capturingPublisher{}
		s, err := NewSweeper(profiles, &fakeMatcher{}, &fakeEligibility{}, events.NewEmitter(publisher, zap.NewNop()), DefaultConfig(), zap.NewNop())
		require.NoError(t, err)
		defer s.Close()

		assert.NoError(t, s.Run(ctx, "sweep-1", []string{"ghost", "p1"}))
	})

	t.Run("cancellation stops at the next batch boundary", func(t *testing.T) {
		store := map[string]*models.Profile{}
		var ids []string
		for _, id := range []string{"a", "b", "c", "d"} {
			store[id] = testProfile(id)
			ids = append(ids, id)
		}
		profiles := &fakeProfiles{profiles: store}

		cfg := DefaultConfig()
		cfg.Workers = 1
		cfg.BatchSize = 2

		publisher := &capturingPublisher{}
		s, err := NewSweeper(profiles, &fakeMatcher{}, &fakeEligibility{}, events.NewEmitter(publisher, zap.NewNop()), cfg, zap.NewNop())
		require.NoError(t, err)
		defer s.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err = s.Run(cancelled, "sweep-1", ids)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, profiles.loadedCount())
	})

	t.Run("run all sweeps every known profile", func(t *testing.T) {
		profiles := &fakeProfiles{profiles: map[string]*models.Profile{
			"p1": testProfile("p1"),
			"p2": testProfile("p2"),
			"p3": testProfile("p3"),
		}}
		publisher := &capturingPublisher{}
		s, err := NewSweeper(profiles, &fakeMatcher{}, &fakeEligibility{}, events.NewEmitter(publisher, zap.NewNop()), DefaultConfig(), zap.NewNop())
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.RunAll(ctx, "sweep-1"))
		assert.Equal(t, 3, profiles.loadedCount())
	})

	t.Run("expired completion deadline cancels remaining batches", func(t *testing.T) {
		profiles := &fakeProfiles{profiles: map[string]*models.Profile{"p1": testProfile("p1")}}
		cfg := DefaultConfig()
		cfg.CompletionDeadline = -time.Second

		publisher := &capturingPublisher{}
		s, err := NewSweeper(profiles, &fakeMatcher{}, &fakeEligibility{}, events.NewEmitter(publisher, zap.NewNop()), cfg, zap.NewNop())
		require.NoError(t, err)
		defer s.Close()

		err = s.Run(ctx, "sweep-1", []string{"p1"})
		assert.Error(t, err)
	})
}
