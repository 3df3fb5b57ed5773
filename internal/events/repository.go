package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecosort/backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, title, description, location, starts_at, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Location, e.StartsAt, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, title, description, location, starts_at, created_by, created_at, updated_at
		FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListCatalog returns all events ascending by start time, each annotated with
// the organizer's email, the participant count across all statuses, and the
// viewer's own participation row when present. One batched query; the
// per-event secondary lookups of the old catalog are folded into joins.
func (r *Repository) ListCatalog(ctx context.Context, viewer uuid.UUID) ([]models.EventSummary, error) {
	const q = `SELECT e.id, e.title, e.description, e.location, e.starts_at, e.created_by, e.created_at, e.updated_at,
			COALESCE(o.email, 'Unknown'),
			(SELECT COUNT(*) FROM participations p WHERE p.event_id = e.id),
			mp.id, mp.status, mp.created_at, mp.updated_at
		FROM events e
		LEFT JOIN users o ON o.id = e.created_by
		LEFT JOIN participations mp ON mp.event_id = e.id AND mp.user_id = $1
		ORDER BY e.starts_at ASC`
	rows, err := r.pool.Query(ctx, q, viewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.EventSummary
	for rows.Next() {
		var s models.EventSummary
		var mpID *uuid.UUID
		var mpStatus *string
		var mpCreated, mpUpdated *time.Time
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Location, &s.StartsAt, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
			&s.OrganizerEmail, &s.ParticipantCount, &mpID, &mpStatus, &mpCreated, &mpUpdated); err != nil {
			return nil, err
		}
		if mpID != nil {
			s.MyParticipation = &models.Participation{
				ID:        *mpID,
				EventID:   s.ID,
				UserID:    viewer,
				Status:    models.ParticipationStatus(*mpStatus),
				CreatedAt: *mpCreated,
				UpdatedAt: *mpUpdated,
			}
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Update replaces the mutable fields of an event.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, location string, startsAt time.Time) error {
	const q = `UPDATE events SET title = $1, description = $2, location = $3, starts_at = $4, updated_at = NOW() WHERE id = $5`
	_, err := r.pool.Exec(ctx, q, title, description, location, startsAt, id)
	return err
}

// Delete removes an event. Participation and upload rows go with it via FK
// cascade; the stored photo objects are reclaimed by the janitor.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM events WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
