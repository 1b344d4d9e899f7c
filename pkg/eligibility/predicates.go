package eligibility

import (
	"strings"

	"github.com/setu-labs/sahayak/pkg/models"
)

// BuildPredicates lowers a scheme's structured criteria into normalized
// predicates. The free-text CustomRules clause is not handled here; it goes
// through the interpreter.
func BuildPredicates(c models.EligibilityCriteria) []models.EligibilityPredicate {
	var preds []models.EligibilityPredicate

	if c.AgeRange != nil {
		minAge := float64(c.AgeRange.Min)
		maxAge := float64(c.AgeRange.Max)
		preds = append(preds, models.EligibilityPredicate{
			Type:       models.PredicateAge,
			MinNumber:  &minAge,
			MaxNumber:  &maxAge,
			Provenance: models.ProvenanceStructured,
		})
	}

	if c.IncomeRange != nil {
		minIncome := c.IncomeRange.Min
		preds = append(preds, models.EligibilityPredicate{
			Type:       models.PredicateIncome,
			MinNumber:  &minIncome,
			MaxNumber:  c.IncomeRange.Max,
			Provenance: models.ProvenanceStructured,
		})
	}

	if c.Gender != "" && c.Gender != models.GenderAny {
		preds = append(preds, models.EligibilityPredicate{
			Type:       models.PredicateGender,
			Values:     []string{string(c.Gender)},
			Provenance: models.ProvenanceStructured,
		})
	}

	if len(c.Locations) > 0 {
		preds = append(preds, models.EligibilityPredicate{
			Type:       models.PredicateLocation,
			Values:     lowerAll(c.Locations),
			Provenance: models.ProvenanceStructured,
		})
	}

	if len(c.Castes) > 0 {
		values := make([]string, 0, len(c.Castes))
		for _, caste := range c.Castes {
			values = append(values, string(caste))
		}
		preds = append(preds, models.EligibilityPredicate{
			Type:       models.PredicateCaste,
			Values:     values,
			Provenance: models.ProvenanceStructured,
		})
	}

	if c.DisabilityRequired {
		required := true
		preds = append(preds, models.EligibilityPredicate{
			Type:       models.PredicateDisability,
			BoolValue:  &required,
			Provenance: models.ProvenanceStructured,
		})
	}

	if len(c.Occupations) > 0 {
		preds = append(preds, models.EligibilityPredicate{
			Type:       models.PredicateOccupation,
			Values:     lowerAll(c.Occupations),
			Provenance: models.ProvenanceStructured,
		})
	}

	if len(c.EducationLevels) > 0 {
		preds = append(preds, models.EligibilityPredicate{
			Type:       models.PredicateEducation,
			Values:     lowerAll(c.EducationLevels),
			Provenance: models.ProvenanceStructured,
		})
	}

	return preds
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}
