package models

import "time"

// ConfidenceLevel indicates how much of a scheme's criteria needed
// natural-language interpretation.
type ConfidenceLevel string

const (
	// ConfidenceHigh means every predicate came from structured criteria.
	ConfidenceHigh ConfidenceLevel = "high"
	// ConfidenceMedium means interpreted predicates were used above threshold.
	ConfidenceMedium ConfidenceLevel = "medium"
	// ConfidenceLow means interpretation degraded or fell below threshold.
	ConfidenceLow ConfidenceLevel = "low"
)

// MatchQuery narrows a match call. Text feeds similarity retrieval; empty
// text falls back to a filter-only catalog scan. Category restricts
// candidates to a single scheme category when set.
type MatchQuery struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// MissingCriterion describes a single unmet eligibility predicate in terms a
// citizen can act on.
type MissingCriterion struct {
	Type        PredicateType `json:"type"`
	Description string        `json:"description"`
	Provenance  Provenance    `json:"provenance"`
}

// SchemeMatch is the engine's per-scheme output. Missing is empty iff the
// score reflects full eligibility. Rank positions within one result set are
// strictly increasing in descending score order.
type SchemeMatch struct {
	SchemeID        string             `json:"scheme_id"`
	SchemeName      string             `json:"scheme_name"`
	Score           float64            `json:"score"`
	Missing         []MissingCriterion `json:"missing_criteria,omitempty"`
	Confidence      ConfidenceLevel    `json:"confidence"`
	BenefitAmount   float64            `json:"benefit_amount"`
	NearestDeadline *time.Time         `json:"nearest_deadline,omitempty"`
	Rank            int                `json:"rank"`
	Similarity      float64            `json:"similarity"`
	Explanation     string             `json:"explanation,omitempty"`
}

// MatchResult is the orchestrator's answer for one query. A result always
// carries primary matches, near matches, or an explanation; never a bare
// empty set.
type MatchResult struct {
	Primary     []SchemeMatch `json:"primary"`
	NearMatches []SchemeMatch `json:"near_matches,omitempty"`
	Degraded    bool          `json:"degraded"`
	Explanation string        `json:"explanation,omitempty"`
}
