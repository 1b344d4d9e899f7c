// Package scoring combines rule-evaluation outcome, retrieval similarity,
// benefit magnitude and deadline proximity into a single ordered, explainable
// ranking. Weights and curves are configuration, not constants.
package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/setu-labs/sahayak/pkg/eligibility"
	"github.com/setu-labs/sahayak/pkg/models"
)

// Weights control score composition. Eligibility should dominate; the three
// must sum to 1.
type Weights struct {
	Eligibility float64
	Deadline    float64
	Benefit     float64
}

// Config tunes the scorer.
type Config struct {
	Weights             Weights
	DeadlineHorizonDays int // linear decay horizon for the deadline component
	NearMissMaxUnmet    int // near matches have at most this many unmet predicates
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Weights:             Weights{Eligibility: 0.6, Deadline: 0.2, Benefit: 0.2},
		DeadlineHorizonDays: 90,
		NearMissMaxUnmet:    2,
	}
}

// Evaluated is one candidate scheme with its evaluation outcome.
type Evaluated struct {
	Scheme     models.Scheme
	Outcome    eligibility.Outcome
	Similarity float64
	Confidence models.ConfidenceLevel
}

// Scorer builds ranked SchemeMatch lists.
type Scorer struct {
	cfg Config
}

// New creates a scorer.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the weighted match score for one evaluated scheme.
// maxBenefit is the candidate set's maximum benefit amount for this query.
func (s *Scorer) Score(ev Evaluated, maxBenefit float64, now time.Time) models.SchemeMatch {
	eligibilityComponent := 1.0
	if !ev.Outcome.Satisfied {
		eligibilityComponent = ev.Outcome.Fraction()
	}

	deadlineComponent := s.deadlineComponent(&ev.Scheme, now)

	benefitComponent := 0.0
	if maxBenefit > 0 {
		benefitComponent = ev.Scheme.Benefit.Amount / maxBenefit
	}

	score := s.cfg.Weights.Eligibility*eligibilityComponent +
		s.cfg.Weights.Deadline*deadlineComponent +
		s.cfg.Weights.Benefit*benefitComponent

	match := models.SchemeMatch{
		SchemeID:        ev.Scheme.ID,
		SchemeName:      ev.Scheme.Name,
		Score:           score,
		Missing:         ev.Outcome.Unmet,
		Confidence:      ev.Confidence,
		BenefitAmount:   ev.Scheme.Benefit.Amount,
		NearestDeadline: ev.Scheme.Deadline.ClosesAt,
		Similarity:      ev.Similarity,
	}
	match.Explanation = explain(&match)
	return match
}

// deadlineComponent decays linearly from 1 toward 0 as the closing date
// approaches over the configured horizon and is 0 once past. Ongoing schemes
// score 1.
func (s *Scorer) deadlineComponent(scheme *models.Scheme, now time.Time) float64 {
	if scheme.Deadline.IsOngoing || scheme.Deadline.ClosesAt == nil {
		return 1.0
	}
	remaining := scheme.Deadline.ClosesAt.Sub(now)
	if remaining <= 0 {
		return 0.0
	}
	horizon := time.Duration(s.cfg.DeadlineHorizonDays) * 24 * time.Hour
	if remaining >= horizon {
		return 1.0
	}
	return float64(remaining) / float64(horizon)
}

// RankPrimary scores the fully-satisfied schemes of the evaluated set and
// returns them ranked. Ties break by fewer missing criteria, nearer deadline,
// then lexicographic scheme ID, so the order is total and reproducible.
func (s *Scorer) RankPrimary(evaluated []Evaluated, now time.Time) []models.SchemeMatch {
	maxBenefit := maxBenefitOf(evaluated)

	matches := make([]models.SchemeMatch, 0, len(evaluated))
	for _, ev := range evaluated {
		if !ev.Outcome.Satisfied {
			continue
		}
		matches = append(matches, s.Score(ev, maxBenefit, now))
	}

	sort.Slice(matches, func(i, j int) bool { return lessRanked(&matches[i], &matches[j]) })
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches
}

// NearMatches returns schemes failing by at most NearMissMaxUnmet predicates,
// ranked by fewest-missing then highest similarity. Each carries its specific
// missing-criteria descriptors; the explanation is never just "not eligible".
func (s *Scorer) NearMatches(evaluated []Evaluated, now time.Time) []models.SchemeMatch {
	maxBenefit := maxBenefitOf(evaluated)

	matches := make([]models.SchemeMatch, 0, len(evaluated))
	for _, ev := range evaluated {
		unmet := len(ev.Outcome.Unmet)
		if unmet == 0 || unmet > s.cfg.NearMissMaxUnmet {
			continue
		}
		matches = append(matches, s.Score(ev, maxBenefit, now))
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := &matches[i], &matches[j]
		if len(a.Missing) != len(b.Missing) {
			return len(a.Missing) < len(b.Missing)
		}
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		return a.SchemeID < b.SchemeID
	})
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches
}

func lessRanked(a, b *models.SchemeMatch) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if len(a.Missing) != len(b.Missing) {
		return len(a.Missing) < len(b.Missing)
	}
	if da, db := a.NearestDeadline, b.NearestDeadline; da != nil || db != nil {
		switch {
		case da == nil:
			return false
		case db == nil:
			return true
		case !da.Equal(*db):
			return da.Before(*db)
		}
	}
	return a.SchemeID < b.SchemeID
}

func maxBenefitOf(evaluated []Evaluated) float64 {
	var maxBenefit float64
	for _, ev := range evaluated {
		if ev.Scheme.Benefit.Amount > maxBenefit {
			maxBenefit = ev.Scheme.Benefit.Amount
		}
	}
	return maxBenefit
}

// explain builds explanation text from the unmet-predicate list, not from the
// score.
func explain(m *models.SchemeMatch) string {
	if len(m.Missing) == 0 {
		return fmt.Sprintf("Eligible for %s.", m.SchemeName)
	}
	parts := make([]string, 0, len(m.Missing))
	for _, mc := range m.Missing {
		parts = append(parts, mc.Description)
	}
	return fmt.Sprintf("Not yet eligible for %s: %s.", m.SchemeName, strings.Join(parts, "; "))
}
