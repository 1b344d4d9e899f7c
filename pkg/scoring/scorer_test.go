package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setu-labs/sahayak/pkg/eligibility"
	"github.com/setu-labs/sahayak/pkg/models"
)

var evalTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func ongoingScheme(id string, benefit float64) models.Scheme {
	return models.Scheme{
		ID:       id,
		Name:     "Scheme " + id,
		Benefit:  models.Benefit{Type: models.BenefitCash, Amount: benefit},
		Deadline: models.DeadlineWindow{IsOngoing: true},
		IsActive: true,
	}
}

func closingScheme(id string, benefit float64, closesIn time.Duration) models.Scheme {
	closes := evalTime.Add(closesIn)
	s := ongoingScheme(id, benefit)
	s.Deadline = models.DeadlineWindow{ClosesAt: &closes}
	return s
}

func satisfied() eligibility.Outcome {
	return eligibility.Outcome{Satisfied: true, Total: 3, Met: 3}
}

func unmet(n int) eligibility.Outcome {
	out := eligibility.Outcome{Total: 3, Met: 3 - n}
	for i := 0; i < n; i++ {
		out.Unmet = append(out.Unmet, models.MissingCriterion{
			Type:        models.PredicateIncome,
			Description: "annual income must not exceed 200000",
		})
	}
	return out
}

func TestDeadlineComponent(t *testing.T) {
	s := New(DefaultConfig())

	tests := []struct {
		name     string
		scheme   models.Scheme
		expected float64
	}{
		{"ongoing scores full", ongoingScheme("a", 0), 1.0},
		{"no closing date scores full", models.Scheme{}, 1.0},
		{"beyond horizon scores full", closingScheme("a", 0, 120*24*time.Hour), 1.0},
		{"half horizon decays linearly", closingScheme("a", 0, 45*24*time.Hour), 0.5},
		{"already closed scores zero", closingScheme("a", 0, -time.Hour), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.deadlineComponent(&tt.scheme, evalTime), 1e-9)
		})
	}
}

func TestScore(t *testing.T) {
	s := New(DefaultConfig())

	t.Run("fully eligible ongoing scheme with max benefit scores 1", func(t *testing.T) {
		ev := Evaluated{Scheme: ongoingScheme("a", 50000), Outcome: satisfied(), Confidence: models.ConfidenceHigh}
		m := s.Score(ev, 50000, evalTime)
		assert.InDelta(t, 1.0, m.Score, 1e-9)
		assert.Contains(t, m.Explanation, "Eligible for")
	})

	t.Run("benefit normalizes against the candidate set maximum", func(t *testing.T) {
		ev := Evaluated{Scheme: ongoingScheme("a", 25000), Outcome: satisfied()}
		m := s.Score(ev, 100000, evalTime)
		// 0.6*1 + 0.2*1 + 0.2*0.25
		assert.InDelta(t, 0.85, m.Score, 1e-9)
	})

	t.Run("partial eligibility uses the satisfied fraction", func(t *testing.T) {
		ev := Evaluated{Scheme: ongoingScheme("a", 0), Outcome: unmet(1)}
		m := s.Score(ev, 0, evalTime)
		// 0.6*(2/3) + 0.2*1 + 0.2*0
		assert.InDelta(t, 0.6, m.Score, 1e-9)
		assert.Contains(t, m.Explanation, "Not yet eligible")
		assert.Contains(t, m.Explanation, "annual income")
	})
}

func TestRankPrimary(t *testing.T) {
	s := New(DefaultConfig())

	t.Run("only fully satisfied schemes are ranked", func(t *testing.T) {
		evaluated := []Evaluated{
			{Scheme: ongoingScheme("a", 1000), Outcome: satisfied()},
			{Scheme: ongoingScheme("b", 9000), Outcome: unmet(1)},
		}
		matches := s.RankPrimary(evaluated, evalTime)
		require.Len(t, matches, 1)
		assert.Equal(t, "a", matches[0].SchemeID)
		assert.Equal(t, 1, matches[0].Rank)
	})

	t.Run("higher benefit ranks first when otherwise equal", func(t *testing.T) {
		evaluated := []Evaluated{
			{Scheme: ongoingScheme("low", 10000), Outcome: satisfied()},
			{Scheme: ongoingScheme("high", 90000), Outcome: satisfied()},
		}
		matches := s.RankPrimary(evaluated, evalTime)
		require.Len(t, matches, 2)
		assert.Equal(t, "high", matches[0].SchemeID)
		assert.Equal(t, "low", matches[1].SchemeID)
		assert.Equal(t, []int{1, 2}, []int{matches[0].Rank, matches[1].Rank})
	})

	t.Run("score ties break by nearer deadline", func(t *testing.T) {
		// Both beyond the decay horizon so scores are identical.
		soon := closingScheme("soon", 5000, 100*24*time.Hour)
		later := closingScheme("later", 5000, 200*24*time.Hour)
		evaluated := []Evaluated{
			{Scheme: later, Outcome: satisfied()},
			{Scheme: soon, Outcome: satisfied()},
		}
		matches := s.RankPrimary(evaluated, evalTime)
		require.Len(t, matches, 2)
		assert.Equal(t, "soon", matches[0].SchemeID)
	})

	t.Run("remaining ties break by scheme id", func(t *testing.T) {
		evaluated := []Evaluated{
			{Scheme: ongoingScheme("zeta", 5000), Outcome: satisfied()},
			{Scheme: ongoingScheme("alpha", 5000), Outcome: satisfied()},
		}
		matches := s.RankPrimary(evaluated, evalTime)
		require.Len(t, matches, 2)
		assert.Equal(t, "alpha", matches[0].SchemeID)
		assert.Equal(t, "zeta", matches[1].SchemeID)
	})

	t.Run("identical input yields identical order", func(t *testing.T) {
		evaluated := []Evaluated{
			{Scheme: ongoingScheme("c", 3000), Outcome: satisfied()},
			{Scheme: ongoingScheme("a", 3000), Outcome: satisfied()},
			{Scheme: ongoingScheme("b", 9000), Outcome: satisfied()},
		}
		first := s.RankPrimary(evaluated, evalTime)
		second := s.RankPrimary(evaluated, evalTime)
		assert.Equal(t, first, second)
	})
}

func TestNearMatches(t *testing.T) {
	s := New(DefaultConfig())

	t.Run("bounded by max unmet predicates", func(t *testing.T) {
		evaluated := []Evaluated{
			{Scheme: ongoingScheme("one", 0), Outcome: unmet(1)},
			{Scheme: ongoingScheme("two", 0), Outcome: unmet(2)},
			{Scheme: ongoingScheme("far", 0), Outcome: unmet(3)},
			{Scheme: ongoingScheme("full", 0), Outcome: satisfied()},
		}
		matches := s.NearMatches(evaluated, evalTime)
		require.Len(t, matches, 2)
		assert.Equal(t, "one", matches[0].SchemeID)
		assert.Equal(t, "two", matches[1].SchemeID)
	})

	t.Run("same missing count orders by similarity", func(t *testing.T) {
		evaluated := []Evaluated{
			{Scheme: ongoingScheme("weak", 0), Outcome: unmet(1), Similarity: 0.2},
			{Scheme: ongoingScheme("strong", 0), Outcome: unmet(1), Similarity: 0.9},
		}
		matches := s.NearMatches(evaluated, evalTime)
		require.Len(t, matches, 2)
		assert.Equal(t, "strong", matches[0].SchemeID)
	})

	t.Run("near matches carry their missing criteria", func(t *testing.T) {
		evaluated := []Evaluated{
			{Scheme: ongoingScheme("a", 0), Outcome: unmet(2)},
		}
		matches := s.NearMatches(evaluated, evalTime)
		require.Len(t, matches, 1)
		assert.Len(t, matches[0].Missing, 2)
		assert.NotEmpty(t, matches[0].Explanation)
		assert.NotEqual(t, "not eligible", matches[0].Explanation)
	})
}
