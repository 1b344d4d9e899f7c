// Package events defines the engine's event schema and the emitter used by
// sweeps. NewlyEligible events are the engine's only outbound responsibility;
// alerting and notification belong to downstream collaborators.
package events

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = "1.0"

// Inbound change-notification event types.
const (
	TypeSchemeCreated     = "scheme.created"
	TypeSchemeUpdated     = "scheme.updated"
	TypeSchemeDeactivated = "scheme.deactivated"
	TypeProfileUpdated    = "profile.updated"
)

// TypeNewlyEligible is the outbound event type emitted by sweeps.
const TypeNewlyEligible = "eligibility.newly_eligible"

// ChangeEvent is a catalog or profile mutation notification. Scheme events
// carry the new version so consumers can discard stale notifications.
type ChangeEvent struct {
	EventType string    `json:"event_type"`
	SchemeID  string    `json:"scheme_id,omitempty"`
	ProfileID string    `json:"profile_id,omitempty"`
	Version   int       `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ParseChangeEvent decodes a change notification payload.
func ParseChangeEvent(data []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// MatchDetails summarizes the match that made a profile newly eligible.
type MatchDetails struct {
	Score           float64    `json:"score"`
	BenefitAmount   float64    `json:"benefit_amount"`
	NearestDeadline *time.Time `json:"nearest_deadline,omitempty"`
	Confidence      string     `json:"confidence"`
}

// NewlyEligibleEvent announces that a sweep found a profile eligible for a
// scheme it was not eligible for before.
type NewlyEligibleEvent struct {
	SchemaVersion string       `json:"schema_version"`
	SweepID       string       `json:"sweep_id"`
	ProfileID     string       `json:"profile_id"`
	SchemeID      string       `json:"scheme_id"`
	SchemeName    string       `json:"scheme_name"`
	Details       MatchDetails `json:"details"`
	Timestamp     time.Time    `json:"timestamp"`
}
