package models

// PredicateType identifies the comparison a predicate performs.
type PredicateType string

const (
	PredicateAge        PredicateType = "age_range"
	PredicateIncome     PredicateType = "income_range"
	PredicateGender     PredicateType = "gender"
	PredicateLocation   PredicateType = "location"
	PredicateCaste      PredicateType = "caste"
	PredicateDisability PredicateType = "disability"
	PredicateOccupation PredicateType = "occupation"
	PredicateEducation  PredicateType = "education"
)

// Provenance records where a predicate came from.
type Provenance string

const (
	ProvenanceStructured  Provenance = "structured"
	ProvenanceInterpreted Provenance = "interpreted"
)

// EligibilityPredicate is a single normalized eligibility comparison. It is a
// transient value derived either from a scheme's structured criteria or from
// interpreting its free-text clause; it is never persisted.
//
// The payload fields are per-type: range predicates use MinNumber/MaxNumber,
// membership predicates use Values, the disability predicate uses BoolValue.
type EligibilityPredicate struct {
	Type       PredicateType `json:"type"`
	MinNumber  *float64      `json:"min,omitempty"`
	MaxNumber  *float64      `json:"max,omitempty"`
	Values     []string      `json:"values,omitempty"`
	BoolValue  *bool         `json:"bool_value,omitempty"`
	Provenance Provenance    `json:"provenance"`
	// Confidence is only meaningful for interpreted predicates.
	Confidence float64 `json:"confidence,omitempty"`
}
