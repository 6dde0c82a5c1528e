package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"videostack-backend/internal/models"
)

type GenerationRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationRepo(pool *pgxpool.Pool) *GenerationRepo {
	return &GenerationRepo{pool: pool}
}

const generationColumns = `id, user_id, prompt, first_frame, last_frame, generation_type, model, provider,
	provider_task_id, status, generated_content_url, error_message, created_at, updated_at, completed_at`

// Updates never touch a row that already reached completed or failed.
const notTerminal = `status NOT IN ('completed', 'failed')`

func scanGeneration(row pgx.Row) (*models.Generation, error) {
	g := &models.Generation{}
	err := row.Scan(
		&g.ID, &g.UserID, &g.Prompt, &g.FirstFrame, &g.LastFrame, &g.GenerationType, &g.Model, &g.Provider,
		&g.ProviderTaskID, &g.Status, &g.GeneratedContentURL, &g.ErrorMessage, &g.CreatedAt, &g.UpdatedAt, &g.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GenerationRepo) Create(ctx context.Context, g *models.Generation) error {
	g.ID = uuid.New()
	g.Status = models.GenerationPending

	query := `INSERT INTO generations (id, user_id, prompt, first_frame, last_frame, generation_type, model, provider, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		g.ID, g.UserID, g.Prompt, g.FirstFrame, g.LastFrame, g.GenerationType, g.Model, g.Provider, g.Status,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
}

func (r *GenerationRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Generation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+generationColumns+` FROM generations WHERE id = $1 AND user_id = $2`, id, userID)
	return scanGeneration(row)
}

func (r *GenerationRepo) ListByUser(ctx context.Context, userID uuid.UUID, genType string, limit, offset int) ([]*models.Generation, int, error) {
	args := []interface{}{userID}
	where := "WHERE user_id = $1"
	if genType != "" {
		args = append(args, genType)
		where += fmt.Sprintf(" AND generation_type = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM generations "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM generations %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		generationColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var gens []*models.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, 0, err
		}
		gens = append(gens, g)
	}
	return gens, total, rows.Err()
}

// MarkProcessing moves a pending generation to processing. It returns
// pgx.ErrNoRows if the row is already terminal.
func (r *GenerationRepo) MarkProcessing(ctx context.Context, id uuid.UUID) (*models.Generation, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE generations SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND `+notTerminal+` RETURNING `+generationColumns, id)
	return scanGeneration(row)
}

func (r *GenerationRepo) SetProviderTask(ctx context.Context, id uuid.UUID, taskID string) (*models.Generation, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE generations SET provider_task_id = $2, updated_at = NOW()
		WHERE id = $1 AND `+notTerminal+` RETURNING `+generationColumns, id, taskID)
	return scanGeneration(row)
}

// Complete only applies to a processing row; a pending row has not been submitted yet.
func (r *GenerationRepo) Complete(ctx context.Context, id uuid.UUID, url string) (*models.Generation, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE generations SET status = 'completed', generated_content_url = $2, error_message = NULL,
			completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'processing' RETURNING `+generationColumns, id, url)
	return scanGeneration(row)
}

func (r *GenerationRepo) Fail(ctx context.Context, id uuid.UUID, message string) (*models.Generation, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE generations SET status = 'failed', error_message = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND `+notTerminal+` RETURNING `+generationColumns, id, message)
	return scanGeneration(row)
}
