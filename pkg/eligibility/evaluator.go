// Package eligibility implements the deterministic rule evaluator. Evaluation
// is a pure function: no I/O, no clock, no short-circuiting. Every unmet
// predicate is recorded so the full missing-criteria list can be reported.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/setu-labs/sahayak/pkg/models"
)

// Outcome is the result of evaluating a predicate set against a profile.
type Outcome struct {
	Satisfied bool
	Unmet     []models.MissingCriterion
	Total     int
	Met       int
}

// Fraction returns the share of predicates satisfied. An empty predicate set
// counts as fully satisfied.
func (o Outcome) Fraction() float64 {
	if o.Total == 0 {
		return 1.0
	}
	return float64(o.Met) / float64(o.Total)
}

// Evaluate checks every predicate against the profile. All predicates must
// hold for Satisfied=true (logical AND). A malformed predicate is programmer
// or data corruption error and aborts evaluation of this predicate set only.
func Evaluate(preds []models.EligibilityPredicate, p *models.Profile) (Outcome, error) {
	out := Outcome{Total: len(preds)}

	for i, pred := range preds {
		met, desc, err := evaluateOne(pred, p)
		if err != nil {
			return Outcome{}, fmt.Errorf("predicate %d (%s): %w", i, pred.Type, err)
		}
		if met {
			out.Met++
			continue
		}
		out.Unmet = append(out.Unmet, models.MissingCriterion{
			Type:        pred.Type,
			Description: desc,
			Provenance:  pred.Provenance,
		})
	}

	out.Satisfied = len(out.Unmet) == 0
	return out, nil
}

func evaluateOne(pred models.EligibilityPredicate, p *models.Profile) (bool, string, error) {
	switch pred.Type {
	case models.PredicateAge:
		// Interpreted clauses routinely carry a single bound ("above 60" has
		// no maximum), so either side may be open.
		if pred.MinNumber == nil && pred.MaxNumber == nil {
			return false, "", fmt.Errorf("age predicate requires at least one bound")
		}
		age := float64(p.Age)
		if pred.MinNumber != nil && age < *pred.MinNumber {
			return false, fmt.Sprintf("age must be at least %d (profile age: %d)",
				int(*pred.MinNumber), p.Age), nil
		}
		if pred.MaxNumber != nil && age > *pred.MaxNumber {
			return false, fmt.Sprintf("age must not exceed %d (profile age: %d)",
				int(*pred.MaxNumber), p.Age), nil
		}
		return true, "", nil

	case models.PredicateIncome:
		// A missing lower bound means no floor; a missing upper bound means
		// no ceiling. "Income below two lakh" lowers to a max-only predicate.
		if pred.MinNumber == nil && pred.MaxNumber == nil {
			return false, "", fmt.Errorf("income predicate requires at least one bound")
		}
		if pred.MinNumber != nil && p.AnnualIncome < *pred.MinNumber {
			return false, fmt.Sprintf("annual income must be at least %.0f (profile income: %.0f)",
				*pred.MinNumber, p.AnnualIncome), nil
		}
		if pred.MaxNumber != nil && p.AnnualIncome > *pred.MaxNumber {
			return false, fmt.Sprintf("annual income must not exceed %.0f (profile income: %.0f)",
				*pred.MaxNumber, p.AnnualIncome), nil
		}
		return true, "", nil

	case models.PredicateGender:
		if len(pred.Values) == 0 {
			return false, "", fmt.Errorf("gender predicate requires a value")
		}
		for _, v := range pred.Values {
			required := strings.ToLower(v)
			if required == string(models.GenderAny) || required == string(p.Gender) {
				return true, "", nil
			}
		}
		return false, fmt.Sprintf("scheme is restricted to %s applicants",
			strings.Join(pred.Values, " or ")), nil

	case models.PredicateLocation:
		// Empty allow-list means no restriction.
		if len(pred.Values) == 0 {
			return true, "", nil
		}
		// Most specific match wins for explanation purposes.
		if containsFold(pred.Values, p.Location.Block) {
			return true, "", nil
		}
		if containsFold(pred.Values, p.Location.District) {
			return true, "", nil
		}
		if containsFold(pred.Values, p.Location.State) {
			return true, "", nil
		}
		return false, fmt.Sprintf("must reside in one of: %s", strings.Join(pred.Values, ", ")), nil

	case models.PredicateCaste:
		if len(pred.Values) == 0 {
			return true, "", nil
		}
		if containsFold(pred.Values, string(p.Caste)) {
			return true, "", nil
		}
		return false, fmt.Sprintf("caste category must be one of: %s", strings.Join(pred.Values, ", ")), nil

	case models.PredicateDisability:
		if pred.BoolValue == nil {
			return false, "", fmt.Errorf("disability predicate requires a boolean value")
		}
		if !*pred.BoolValue || p.Disability.HasDisability {
			return true, "", nil
		}
		return false, "scheme requires a registered disability", nil

	case models.PredicateOccupation:
		if len(pred.Values) == 0 {
			return true, "", nil
		}
		if containsFold(pred.Values, p.Occupation) {
			return true, "", nil
		}
		return false, fmt.Sprintf("occupation must be one of: %s", strings.Join(pred.Values, ", ")), nil

	case models.PredicateEducation:
		if len(pred.Values) == 0 {
			return true, "", nil
		}
		if containsFold(pred.Values, p.EducationLevel) {
			return true, "", nil
		}
		return false, fmt.Sprintf("education level must be one of: %s", strings.Join(pred.Values, ", ")), nil

	default:
		return false, "", fmt.Errorf("unknown predicate type %q", pred.Type)
	}
}

func containsFold(values []string, candidate string) bool {
	if candidate == "" {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(v, candidate) {
			return true
		}
	}
	return false
}
