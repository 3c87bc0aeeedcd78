package models

import "time"

// EventType names a profile lifecycle event.
type EventType string

const (
	EventPopulated EventType = "profile.populated"
	EventValidated EventType = "profile.validated"
)

// ProfileEvent is published after a person's pipeline run commits. It
// carries outcomes and document types only, never profile values.
type ProfileEvent struct {
	Type       EventType          `json:"type"`
	UserID     string             `json:"user_id"`
	Complete   bool               `json:"complete"`
	Unresolved int                `json:"unresolved,omitempty"`
	Provenance Provenance         `json:"provenance,omitempty"`
	Results    []ValidationResult `json:"results,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// BatchReport summarises one batch run.
type BatchReport struct {
	Pipeline  string `json:"pipeline"`
	Picked    int    `json:"picked"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}
