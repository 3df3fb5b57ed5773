package profiles

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecosort/backend/internal/models"
)

// Repository handles profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profiles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a profile by user ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, created_at, updated_at
		FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// PromoteToOrganizer upgrades a volunteer to organizer. Role moves upward only;
// the WHERE clause makes the call a no-op for users already promoted.
func (r *Repository) PromoteToOrganizer(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `UPDATE users SET role = $1, updated_at = NOW()
		WHERE id = $2 AND role <> $1
		RETURNING id, email, password_hash, full_name, role, created_at, updated_at`
	var u models.User
	err := r.pool.QueryRow(ctx, q, string(models.RoleOrganizer), id).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
