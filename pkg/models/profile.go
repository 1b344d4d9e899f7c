// Package models defines the core data structures of the eligibility matching engine.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Gender is the citizen's declared gender.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderOther  Gender = "other"
	// GenderAny is only valid as a scheme requirement, never on a profile.
	GenderAny Gender = "any"
)

// CasteCategory is the citizen's reservation category.
type CasteCategory string

const (
	CasteGeneral CasteCategory = "general"
	CasteOBC     CasteCategory = "obc"
	CasteSC      CasteCategory = "sc"
	CasteST      CasteCategory = "st"
	CasteEWS     CasteCategory = "ews"
)

// MaritalStatus values used in family composition.
type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "single"
	MaritalMarried  MaritalStatus = "married"
	MaritalWidowed  MaritalStatus = "widowed"
	MaritalDivorced MaritalStatus = "divorced"
)

// Location is the citizen's hierarchical administrative location.
type Location struct {
	State     string   `json:"state" validate:"required"`
	District  string   `json:"district,omitempty"`
	Block     string   `json:"block,omitempty"`
	Village   string   `json:"village,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Disability describes the citizen's disability status.
type Disability struct {
	HasDisability bool   `json:"has_disability"`
	Type          string `json:"type,omitempty"`
	Percentage    int    `json:"percentage,omitempty" validate:"gte=0,lte=100"`
}

// Family describes the citizen's family composition.
type Family struct {
	MaritalStatus MaritalStatus `json:"marital_status,omitempty"`
	ChildrenCount int           `json:"children_count" validate:"gte=0"`
	ChildrenAges  []int         `json:"children_ages,omitempty"`
	Dependents    int           `json:"dependents" validate:"gte=0"`
	IsPregnant    bool          `json:"is_pregnant"`
	Trimester     int           `json:"trimester,omitempty" validate:"gte=0,lte=3"`
}

// Profile is a citizen's attribute record used for eligibility evaluation.
// The engine treats profiles as read-only inputs; mutation happens upstream.
type Profile struct {
	ID             string        `json:"id" db:"id" validate:"required"`
	Age            int           `json:"age" db:"age" validate:"gte=0"`
	AnnualIncome   float64       `json:"annual_income" db:"annual_income" validate:"gte=0"`
	Gender         Gender        `json:"gender" db:"gender" validate:"required,oneof=female male other"`
	Location       Location      `json:"location" db:"location"`
	Caste          CasteCategory `json:"caste" db:"caste" validate:"required"`
	Disability     Disability    `json:"disability" db:"disability"`
	Family         Family        `json:"family" db:"family"`
	Occupation     string        `json:"occupation,omitempty" db:"occupation"`
	EducationLevel string        `json:"education_level,omitempty" db:"education_level"`
	Language       string        `json:"language,omitempty" db:"language"`
	Version        int           `json:"version" db:"version"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Value implements driver.Valuer so nested structs can be stored as JSONB.
func (l Location) Value() (driver.Value, error) { return json.Marshal(l) }

// Scan implements sql.Scanner.
func (l *Location) Scan(src any) error { return scanJSON(src, l) }

func (d Disability) Value() (driver.Value, error) { return json.Marshal(d) }
func (d *Disability) Scan(src any) error          { return scanJSON(src, d) }

func (f Family) Value() (driver.Value, error) { return json.Marshal(f) }
func (f *Family) Scan(src any) error          { return scanJSON(src, f) }

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
