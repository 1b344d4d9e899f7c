package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sahayak-api", cfg.AppName)
	assert.Equal(t, 3004, cfg.Port)
	assert.Equal(t, 10, cfg.Matching.TopK)
	assert.InDelta(t, 1.0, cfg.Matching.EligibilityWeight+cfg.Matching.DeadlineWeight+cfg.Matching.BenefitWeight, 1e-9)
	assert.Equal(t, 90, cfg.Matching.DeadlineHorizonDays)
	assert.Equal(t, 0.6, cfg.AI.MinConfidence)
	assert.Equal(t, 4, cfg.Sweep.Workers)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MATCHING_TOP_K", "25")
	t.Setenv("DATABASE_NAME", "sahayak_test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Matching.TopK)
	assert.Equal(t, "sahayak_test", cfg.Database.Name)
}

func TestValidation(t *testing.T) {
	t.Run("weights must sum to one", func(t *testing.T) {
		t.Setenv("MATCHING_ELIGIBILITY_WEIGHT", "0.9")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("top k must be positive", func(t *testing.T) {
		t.Setenv("MATCHING_TOP_K", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("min confidence must be a probability", func(t *testing.T) {
		t.Setenv("AI_MIN_CONFIDENCE", "1.5")
		_, err := Load()
		assert.Error(t, err)
	})
}
