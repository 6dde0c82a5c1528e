package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"videostack-backend/internal/models"
)

type AssetRepo struct {
	pool *pgxpool.Pool
}

func NewAssetRepo(pool *pgxpool.Pool) *AssetRepo {
	return &AssetRepo{pool: pool}
}

func (r *AssetRepo) Create(ctx context.Context, a *models.Asset) error {
	a.ID = uuid.New()
	a.Status = models.AssetStatusActive

	query := `INSERT INTO assets (id, user_id, link, type, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, a.ID, a.UserID, a.Link, a.Type, a.Status).
		Scan(&a.CreatedAt, &a.UpdatedAt)
}

// ListActiveByUser returns the user's non-deleted assets, newest first.
func (r *AssetRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Asset, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, link, type, status, created_at, updated_at
		FROM assets WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC`, userID, models.AssetStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		a := &models.Asset{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Link, &a.Type, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// SoftDelete marks an active asset owned by userID as deleted. It returns
// pgx.ErrNoRows when no such asset exists.
func (r *AssetRepo) SoftDelete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assets SET status = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = $4`,
		models.AssetStatusDeleted, id, userID, models.AssetStatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
