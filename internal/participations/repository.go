package participations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecosort/backend/internal/models"
)

// ErrAlreadyJoined is returned when a (event, user) participation already exists.
var ErrAlreadyJoined = errors.New("already joined")

// Repository handles participation persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Join inserts an accepted participation for (event, user). The unique
// constraint absorbs duplicate joins, including double-click races: the second
// insert hits the conflict clause, returns no row, and maps to ErrAlreadyJoined.
func (r *Repository) Join(ctx context.Context, eventID, userID uuid.UUID) (*models.Participation, error) {
	const q = `INSERT INTO participations (id, event_id, user_id, status)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (event_id, user_id) DO NOTHING
		RETURNING id, event_id, user_id, status, created_at, updated_at`
	var p models.Participation
	err := r.pool.QueryRow(ctx, q, eventID, userID, string(models.ParticipationAccepted)).
		Scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}
	return &p, nil
}

// Leave deletes the caller's participation for an event. Returns false when
// there was no row to delete.
func (r *Repository) Leave(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	const q = `DELETE FROM participations WHERE event_id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, eventID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetWithEventOwner returns a participation and the owning organizer of its
// event, for organizer-only transitions.
func (r *Repository) GetWithEventOwner(ctx context.Context, id uuid.UUID) (*models.Participation, uuid.UUID, error) {
	const q = `SELECT p.id, p.event_id, p.user_id, p.status, p.created_at, p.updated_at, e.created_by
		FROM participations p
		JOIN events e ON e.id = p.event_id
		WHERE p.id = $1`
	var p models.Participation
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.CreatedAt, &p.UpdatedAt, &owner)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return &p, owner, nil
}

// SetStatus updates the status of a participation. Transitions are idempotent:
// setting an already-held status is a no-op update.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.ParticipationStatus) (*models.Participation, error) {
	const q = `UPDATE participations SET status = $1, updated_at = NOW() WHERE id = $2
		RETURNING id, event_id, user_id, status, created_at, updated_at`
	var p models.Participation
	err := r.pool.QueryRow(ctx, q, string(status), id).
		Scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Remove deletes a participation outright (organizer-initiated removal).
func (r *Repository) Remove(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM participations WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// ListByEvent returns all participations for an event enriched with each
// user's display identity. A missing user degrades to "Unknown" rather than
// failing the list.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error) {
	const q = `SELECT p.id, p.event_id, p.user_id, p.status, p.created_at, p.updated_at,
			COALESCE(u.email, 'Unknown'), COALESCE(u.full_name, '')
		FROM participations p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.event_id = $1
		ORDER BY p.created_at ASC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.Email, &p.FullName); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
