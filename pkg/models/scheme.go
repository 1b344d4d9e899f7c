package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// BenefitType categorizes what a scheme provides.
type BenefitType string

const (
	BenefitCash        BenefitType = "cash"
	BenefitPension     BenefitType = "pension"
	BenefitScholarship BenefitType = "scholarship"
	BenefitSubsidy     BenefitType = "subsidy"
	BenefitInsurance   BenefitType = "insurance"
	BenefitHousing     BenefitType = "housing"
	BenefitLoan        BenefitType = "loan"
)

// Benefit describes what an eligible citizen receives.
type Benefit struct {
	Type        BenefitType `json:"type"`
	Amount      float64     `json:"amount"`
	Description string      `json:"description,omitempty"`
}

// DeadlineWindow is a scheme's application window. IsOngoing schemes accept
// applications at any time.
type DeadlineWindow struct {
	OpensAt   *time.Time `json:"opens_at,omitempty"`
	ClosesAt  *time.Time `json:"closes_at,omitempty"`
	IsOngoing bool       `json:"is_ongoing"`
}

// AgeRange is an inclusive age bound.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// IncomeRange is an inclusive annual income bound. A nil Max means no ceiling.
type IncomeRange struct {
	Min float64  `json:"min"`
	Max *float64 `json:"max,omitempty"`
}

// EligibilityCriteria is a scheme's structured predicate set plus an optional
// free-text clause that needs interpretation before it can be evaluated.
type EligibilityCriteria struct {
	AgeRange           *AgeRange       `json:"age_range,omitempty"`
	IncomeRange        *IncomeRange    `json:"income_range,omitempty"`
	Gender             Gender          `json:"gender,omitempty"` // empty or "any" means no restriction
	Locations          []string        `json:"locations,omitempty"`
	Castes             []CasteCategory `json:"castes,omitempty"`
	DisabilityRequired bool            `json:"disability_required"`
	Occupations        []string        `json:"occupations,omitempty"`
	EducationLevels    []string        `json:"education_levels,omitempty"`
	CustomRules        string          `json:"custom_rules,omitempty"`
}

// Scheme is a government program record. Version strictly increases on every
// mutation; the engine never mutates a scheme.
type Scheme struct {
	ID                string              `json:"id" db:"id"`
	Name              string              `json:"name" db:"name"`
	Category          string              `json:"category" db:"category"`
	Criteria          EligibilityCriteria `json:"criteria" db:"criteria"`
	Benefit           Benefit             `json:"benefit" db:"benefit"`
	RequiredDocuments StringList          `json:"required_documents,omitempty" db:"required_documents"`
	Deadline          DeadlineWindow      `json:"deadline" db:"deadline"`
	Embedding         Vector              `json:"embedding,omitempty" db:"embedding"`
	IsActive          bool                `json:"is_active" db:"is_active"`
	Version           int                 `json:"version" db:"version"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" db:"updated_at"`
}

// AcceptingApplications reports whether the scheme's window is open at t.
func (s *Scheme) AcceptingApplications(t time.Time) bool {
	if s.Deadline.IsOngoing {
		return true
	}
	if s.Deadline.OpensAt != nil && t.Before(*s.Deadline.OpensAt) {
		return false
	}
	if s.Deadline.ClosesAt != nil && t.After(*s.Deadline.ClosesAt) {
		return false
	}
	return true
}

// StringList stores a slice of strings as a JSONB column.
type StringList []string

func (s StringList) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *StringList) Scan(src any) error          { return scanJSON(src, s) }

// Vector is a scheme embedding stored as a JSONB column.
type Vector []float32

func (v Vector) Value() (driver.Value, error) { return json.Marshal(v) }
func (v *Vector) Scan(src any) error          { return scanJSON(src, v) }

func (c EligibilityCriteria) Value() (driver.Value, error) { return json.Marshal(c) }
func (c *EligibilityCriteria) Scan(src any) error          { return scanJSON(src, c) }

func (b Benefit) Value() (driver.Value, error) { return json.Marshal(b) }
func (b *Benefit) Scan(src any) error          { return scanJSON(src, b) }

func (d DeadlineWindow) Value() (driver.Value, error) { return json.Marshal(d) }
func (d *DeadlineWindow) Scan(src any) error          { return scanJSON(src, d) }
