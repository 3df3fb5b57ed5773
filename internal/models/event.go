package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a scheduled community activity (clean-up drive, collection day, seminar).
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventSummary is an event annotated with the derived catalog fields: organizer
// display email, participant count across all statuses, and the viewer's own
// participation when present.
type EventSummary struct {
	Event
	OrganizerEmail   string         `json:"organizer_email"`
	ParticipantCount int            `json:"participant_count"`
	MyParticipation  *Participation `json:"my_participation,omitempty"`
}

// EventDetail is the expanded per-event view: the event plus its full
// participant and photo lists.
type EventDetail struct {
	Event        Event         `json:"event"`
	Participants []Participant `json:"participants"`
	Photos       []EventPhoto  `json:"photos"`
}
