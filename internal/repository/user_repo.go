package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"videostack-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, external_id, name, email, created_at, updated_at`

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, external_id, name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	user.ID = uuid.New()

	return r.pool.QueryRow(ctx, query,
		user.ID, user.ExternalID, user.Name, user.Email,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).Scan(
		&user.ID, &user.ExternalID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	user := &models.User{}
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID).Scan(
		&user.ID, &user.ExternalID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	return r.pool.QueryRow(ctx,
		"UPDATE users SET name = $1, email = $2, updated_at = NOW() WHERE id = $3 RETURNING updated_at",
		user.Name, user.Email, user.ID,
	).Scan(&user.UpdatedAt)
}
