package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"videostack-backend/internal/models"
)

type StoryboardRepo struct {
	pool *pgxpool.Pool
}

func NewStoryboardRepo(pool *pgxpool.Pool) *StoryboardRepo {
	return &StoryboardRepo{pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ──── Storyboards ────

// CreateAggregate inserts the storyboard with all of its scenes and shots in
// one transaction. Nothing is written if any insert fails.
func (r *StoryboardRepo) CreateAggregate(ctx context.Context, sb *models.Storyboard) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin storyboard transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertStoryboard(ctx, tx, sb); err != nil {
		return fmt.Errorf("failed to insert storyboard: %w", err)
	}
	for _, scene := range sb.Scenes {
		scene.StoryboardID = sb.ID
		if err := insertScene(ctx, tx, scene); err != nil {
			return fmt.Errorf("failed to insert scene %d: %w", scene.SceneNumber, err)
		}
		for _, shot := range scene.Shots {
			shot.SceneID = scene.ID
			if err := insertShot(ctx, tx, shot); err != nil {
				return fmt.Errorf("failed to insert shot %d of scene %d: %w", shot.ShotNumber, scene.SceneNumber, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit storyboard: %w", err)
	}
	return nil
}

func insertStoryboard(ctx context.Context, q querier, sb *models.Storyboard) error {
	sb.ID = uuid.New()
	return q.QueryRow(ctx,
		`INSERT INTO storyboards (id, user_id, initial_line, storyline, title, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		sb.ID, sb.UserID, sb.InitialLine, sb.Storyline, sb.Title, sb.Status,
	).Scan(&sb.CreatedAt, &sb.UpdatedAt)
}

func (r *StoryboardRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Storyboard, error) {
	sb := &models.Storyboard{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, initial_line, storyline, title, status, created_at, updated_at
		FROM storyboards WHERE id = $1`, id,
	).Scan(&sb.ID, &sb.UserID, &sb.InitialLine, &sb.Storyline, &sb.Title, &sb.Status, &sb.CreatedAt, &sb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sb, nil
}

// LoadHierarchy fills sb.Scenes and each scene's shots.
func (r *StoryboardRepo) LoadHierarchy(ctx context.Context, sb *models.Storyboard) error {
	scenes, err := r.listScenes(ctx, sb.ID)
	if err != nil {
		return err
	}

	byID := make(map[uuid.UUID]*models.StoryboardScene, len(scenes))
	for _, sc := range scenes {
		sc.Shots = []*models.Shot{}
		byID[sc.ID] = sc
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.scene_id, s.shot_number, s.user_prompt, s.start_image_url, s.end_image_url,
			s.video_url, s.status, s.created_at, s.updated_at
		FROM shots s JOIN storyboard_scenes sc ON sc.id = s.scene_id
		WHERE sc.storyboard_id = $1
		ORDER BY s.created_at`, sb.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		shot, err := scanShot(rows)
		if err != nil {
			return err
		}
		if sc, ok := byID[shot.SceneID]; ok {
			sc.Shots = append(sc.Shots, shot)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sb.Scenes = scenes
	return nil
}

func (r *StoryboardRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.StoryboardSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM storyboards WHERE user_id = $1", userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT sb.id, sb.user_id, sb.initial_line, sb.storyline, sb.title, sb.status,
			(SELECT COUNT(*) FROM storyboard_scenes sc WHERE sc.storyboard_id = sb.id),
			sb.created_at, sb.updated_at
		FROM storyboards sb
		WHERE sb.user_id = $1
		ORDER BY sb.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.StoryboardSummary
	for rows.Next() {
		s := &models.StoryboardSummary{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.InitialLine, &s.Storyline, &s.Title, &s.Status,
			&s.SceneCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *StoryboardRepo) Update(ctx context.Context, sb *models.Storyboard) error {
	return r.pool.QueryRow(ctx,
		`UPDATE storyboards SET initial_line = $1, storyline = $2, title = $3, status = $4, updated_at = NOW()
		WHERE id = $5 RETURNING updated_at`,
		sb.InitialLine, sb.Storyline, sb.Title, sb.Status, sb.ID,
	).Scan(&sb.UpdatedAt)
}

// Delete removes the storyboard; scenes and shots go with it via ON DELETE CASCADE.
func (r *StoryboardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM storyboards WHERE id = $1", id)
	return err
}

// ──── Scenes ────

func scanScene(row pgx.Row) (*models.StoryboardScene, error) {
	sc := &models.StoryboardScene{}
	err := row.Scan(&sc.ID, &sc.StoryboardID, &sc.SceneNumber, &sc.Description, &sc.Duration, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

const sceneColumns = `id, storyboard_id, scene_number, description, duration, created_at, updated_at`

func (r *StoryboardRepo) listScenes(ctx context.Context, storyboardID uuid.UUID) ([]*models.StoryboardScene, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sceneColumns+` FROM storyboard_scenes WHERE storyboard_id = $1 ORDER BY created_at`, storyboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scenes := []*models.StoryboardScene{}
	for rows.Next() {
		sc, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, sc)
	}
	return scenes, rows.Err()
}

func insertScene(ctx context.Context, q querier, sc *models.StoryboardScene) error {
	sc.ID = uuid.New()
	return q.QueryRow(ctx,
		`INSERT INTO storyboard_scenes (id, storyboard_id, scene_number, description, duration)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		sc.ID, sc.StoryboardID, sc.SceneNumber, sc.Description, sc.Duration,
	).Scan(&sc.CreatedAt, &sc.UpdatedAt)
}

func (r *StoryboardRepo) CreateScene(ctx context.Context, sc *models.StoryboardScene) error {
	return insertScene(ctx, r.pool, sc)
}

func (r *StoryboardRepo) GetScene(ctx context.Context, id uuid.UUID) (*models.StoryboardScene, error) {
	return scanScene(r.pool.QueryRow(ctx, `SELECT `+sceneColumns+` FROM storyboard_scenes WHERE id = $1`, id))
}

func (r *StoryboardRepo) ListShots(ctx context.Context, sceneID uuid.UUID) ([]*models.Shot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+shotColumns+` FROM shots WHERE scene_id = $1 ORDER BY created_at`, sceneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shots := []*models.Shot{}
	for rows.Next() {
		s, err := scanShot(rows)
		if err != nil {
			return nil, err
		}
		shots = append(shots, s)
	}
	return shots, rows.Err()
}

func (r *StoryboardRepo) UpdateScene(ctx context.Context, sc *models.StoryboardScene) error {
	return r.pool.QueryRow(ctx,
		`UPDATE storyboard_scenes SET scene_number = $1, description = $2, duration = $3, updated_at = NOW()
		WHERE id = $4 RETURNING updated_at`,
		sc.SceneNumber, sc.Description, sc.Duration, sc.ID,
	).Scan(&sc.UpdatedAt)
}

func (r *StoryboardRepo) DeleteScene(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM storyboard_scenes WHERE id = $1", id)
	return err
}

// ──── Shots ────

const shotColumns = `id, scene_id, shot_number, user_prompt, start_image_url, end_image_url, video_url, status, created_at, updated_at`

func scanShot(row pgx.Row) (*models.Shot, error) {
	s := &models.Shot{}
	err := row.Scan(&s.ID, &s.SceneID, &s.ShotNumber, &s.UserPrompt, &s.StartImageURL, &s.EndImageURL,
		&s.VideoURL, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func insertShot(ctx context.Context, q querier, s *models.Shot) error {
	s.ID = uuid.New()
	return q.QueryRow(ctx,
		`INSERT INTO shots (id, scene_id, shot_number, user_prompt, start_image_url, end_image_url, video_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`,
		s.ID, s.SceneID, s.ShotNumber, s.UserPrompt, s.StartImageURL, s.EndImageURL, s.VideoURL, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *StoryboardRepo) CreateShot(ctx context.Context, s *models.Shot) error {
	return insertShot(ctx, r.pool, s)
}

func (r *StoryboardRepo) GetShot(ctx context.Context, id uuid.UUID) (*models.Shot, error) {
	return scanShot(r.pool.QueryRow(ctx, `SELECT `+shotColumns+` FROM shots WHERE id = $1`, id))
}

func (r *StoryboardRepo) UpdateShot(ctx context.Context, s *models.Shot) error {
	return r.pool.QueryRow(ctx,
		`UPDATE shots SET shot_number = $1, user_prompt = $2, start_image_url = $3, end_image_url = $4,
			video_url = $5, status = $6, updated_at = NOW()
		WHERE id = $7 RETURNING updated_at`,
		s.ShotNumber, s.UserPrompt, s.StartImageURL, s.EndImageURL, s.VideoURL, s.Status, s.ID,
	).Scan(&s.UpdatedAt)
}

// ClaimShot moves a shot to processing unless it is already there. It returns
// pgx.ErrNoRows when the shot is missing or another generation holds it.
func (r *StoryboardRepo) ClaimShot(ctx context.Context, id uuid.UUID) (*models.Shot, error) {
	return scanShot(r.pool.QueryRow(ctx,
		`UPDATE shots SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status <> 'processing'
		RETURNING `+shotColumns, id))
}

func (r *StoryboardRepo) DeleteShot(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM shots WHERE id = $1", id)
	return err
}
