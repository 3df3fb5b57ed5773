package uploads

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecosort/backend/internal/models"
)

// Repository handles upload metadata persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an uploads repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an upload metadata row.
func (r *Repository) Create(ctx context.Context, u *models.Upload) error {
	const q = `INSERT INTO uploads (id, uploader_id, event_id, object_key, url, category, label)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, u.UploaderID, u.EventID, u.ObjectKey, u.URL, string(u.Category), u.Label).
		Scan(&u.ID, &u.CreatedAt)
}

// GetByID returns an upload by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	const q = `SELECT id, uploader_id, event_id, object_key, url, category, label, created_at
		FROM uploads WHERE id = $1`
	var u models.Upload
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.UploaderID, &u.EventID, &u.ObjectKey, &u.URL, &u.Category, &u.Label, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes an upload metadata row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM uploads WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// ListByEvent returns all event photos for an event, newest first, enriched
// with the uploader's email ("Unknown" when the user cannot be resolved).
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.EventPhoto, error) {
	const q = `SELECT up.id, up.uploader_id, up.event_id, up.object_key, up.url, up.category, up.label, up.created_at,
			COALESCE(u.email, 'Unknown')
		FROM uploads up
		LEFT JOIN users u ON u.id = up.uploader_id
		WHERE up.event_id = $1 AND up.category = $2
		ORDER BY up.created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID, string(models.CategoryEventPhoto))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventPhoto
	for rows.Next() {
		var p models.EventPhoto
		if err := rows.Scan(&p.ID, &p.UploaderID, &p.EventID, &p.ObjectKey, &p.URL, &p.Category, &p.Label, &p.CreatedAt, &p.UploaderEmail); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// PhotoKeysByEvent returns the object keys of all photos attached to an event,
// read ahead of a cascade delete so the janitor can reclaim the objects.
func (r *Repository) PhotoKeysByEvent(ctx context.Context, eventID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT object_key FROM uploads WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
