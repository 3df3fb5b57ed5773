package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipationStatus is the approval state of a participation record.
type ParticipationStatus string

const (
	ParticipationPending  ParticipationStatus = "pending"
	ParticipationAccepted ParticipationStatus = "accepted"
	ParticipationDeclined ParticipationStatus = "declined"
)

// ValidParticipationStatus reports whether s is a known status.
func ValidParticipationStatus(s string) bool {
	switch ParticipationStatus(s) {
	case ParticipationPending, ParticipationAccepted, ParticipationDeclined:
		return true
	}
	return false
}

// Participation links one user to one event. One row per (event, user) pair.
type Participation struct {
	ID        uuid.UUID           `json:"id"`
	EventID   uuid.UUID           `json:"event_id"`
	UserID    uuid.UUID           `json:"user_id"`
	Status    ParticipationStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Participant is a participation enriched with the user's display identity.
// Email falls back to "Unknown" when the user row cannot be resolved.
type Participant struct {
	Participation
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}
