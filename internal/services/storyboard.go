package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"videostack-backend/internal/models"
)

type StoryboardStore interface {
	CreateAggregate(ctx context.Context, sb *models.Storyboard) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Storyboard, error)
	LoadHierarchy(ctx context.Context, sb *models.Storyboard) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.StoryboardSummary, int, error)
	Update(ctx context.Context, sb *models.Storyboard) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateScene(ctx context.Context, sc *models.StoryboardScene) error
	GetScene(ctx context.Context, id uuid.UUID) (*models.StoryboardScene, error)
	ListShots(ctx context.Context, sceneID uuid.UUID) ([]*models.Shot, error)
	UpdateScene(ctx context.Context, sc *models.StoryboardScene) error
	DeleteScene(ctx context.Context, id uuid.UUID) error

	CreateShot(ctx context.Context, s *models.Shot) error
	GetShot(ctx context.Context, id uuid.UUID) (*models.Shot, error)
	UpdateShot(ctx context.Context, s *models.Shot) error
	ClaimShot(ctx context.Context, id uuid.UUID) (*models.Shot, error)
	DeleteShot(ctx context.Context, id uuid.UUID) error
}

// Generator runs a media generation for a user. Implemented by *GenerationService.
type Generator interface {
	Create(ctx context.Context, userID uuid.UUID, req models.CreateGenerationRequest) (*models.Generation, error)
}

const (
	maxInitialLineLen = 2000
	maxTitleLen       = 500
	maxDescriptionLen = 2000
	maxUserPromptLen  = 2000
)

var (
	errStoryboardNotFound = &NotFoundError{Message: "Storyboard not found"}
	errSceneNotFound      = &NotFoundError{Message: "Scene not found"}
	errShotNotFound       = &NotFoundError{Message: "Shot not found"}
)

type StoryboardService struct {
	store     StoryboardStore
	generator Generator
	logger    *slog.Logger
}

func NewStoryboardService(store StoryboardStore, generator Generator, logger *slog.Logger) *StoryboardService {
	return &StoryboardService{store: store, generator: generator, logger: logger}
}

// ──── Ownership chain ────

func (s *StoryboardService) ownedStoryboard(ctx context.Context, userID, id uuid.UUID) (*models.Storyboard, error) {
	sb, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errStoryboardNotFound
		}
		return nil, err
	}
	if sb.UserID != userID {
		return nil, errStoryboardNotFound
	}
	return sb, nil
}

func (s *StoryboardService) ownedScene(ctx context.Context, userID, storyboardID, sceneID uuid.UUID) (*models.StoryboardScene, error) {
	if _, err := s.ownedStoryboard(ctx, userID, storyboardID); err != nil {
		return nil, err
	}
	sc, err := s.store.GetScene(ctx, sceneID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errSceneNotFound
		}
		return nil, err
	}
	if sc.StoryboardID != storyboardID {
		return nil, errSceneNotFound
	}
	return sc, nil
}

func (s *StoryboardService) ownedShot(ctx context.Context, userID, storyboardID, sceneID, shotID uuid.UUID) (*models.Shot, error) {
	if _, err := s.ownedScene(ctx, userID, storyboardID, sceneID); err != nil {
		return nil, err
	}
	shot, err := s.store.GetShot(ctx, shotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errShotNotFound
		}
		return nil, err
	}
	if shot.SceneID != sceneID {
		return nil, errShotNotFound
	}
	return shot, nil
}

// ──── Storyboards ────

func (s *StoryboardService) Create(ctx context.Context, userID uuid.UUID, req models.CreateStoryboardRequest) (*models.Storyboard, error) {
	fields := map[string]string{}
	checkRequiredText(fields, "initial_line", req.InitialLine, maxInitialLineLen)
	checkOptionalText(fields, "title", req.Title, maxTitleLen)
	status := models.StoryboardDraft
	if req.Status != nil {
		status = *req.Status
		checkStoryboardStatus(fields, "status", status)
	}

	sb := &models.Storyboard{
		UserID:      userID,
		InitialLine: req.InitialLine,
		Storyline:   req.Storyline,
		Title:       req.Title,
		Status:      status,
		Scenes:      make([]*models.StoryboardScene, 0, len(req.Scenes)),
	}

	for i, scReq := range req.Scenes {
		prefix := fmt.Sprintf("scenes[%d].", i)
		checkSceneFields(fields, prefix, &scReq.SceneNumber, scReq.Description, scReq.Duration)

		scene := &models.StoryboardScene{
			SceneNumber: scReq.SceneNumber,
			Description: scReq.Description,
			Duration:    scReq.Duration,
			Shots:       make([]*models.Shot, 0, len(scReq.Shots)),
		}
		for j, shReq := range scReq.Shots {
			shot, ok := buildShot(fields, fmt.Sprintf("%sshots[%d].", prefix, j), shReq)
			if ok {
				scene.Shots = append(scene.Shots, shot)
			}
		}
		sb.Scenes = append(sb.Scenes, scene)
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.store.CreateAggregate(ctx, sb); err != nil {
		return nil, err
	}
	sb.SortHierarchy()
	return sb, nil
}

func (s *StoryboardService) List(ctx context.Context, userID uuid.UUID, skip, limit int) (*models.StoryboardListResponse, error) {
	skip, limit = normalizePage(skip, limit)
	items, total, err := s.store.ListByUser(ctx, userID, limit, skip)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.StoryboardSummary{}
	}
	return &models.StoryboardListResponse{Storyboards: items, Total: total}, nil
}

func (s *StoryboardService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Storyboard, error) {
	sb, err := s.ownedStoryboard(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.LoadHierarchy(ctx, sb); err != nil {
		return nil, err
	}
	sb.SortHierarchy()
	return sb, nil
}

func (s *StoryboardService) Update(ctx context.Context, userID, id uuid.UUID, req models.UpdateStoryboardRequest) (*models.Storyboard, error) {
	fields := map[string]string{}
	if req.InitialLine != nil {
		checkRequiredText(fields, "initial_line", *req.InitialLine, maxInitialLineLen)
	}
	checkOptionalText(fields, "title", req.Title, maxTitleLen)
	if req.Status != nil {
		checkStoryboardStatus(fields, "status", *req.Status)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	sb, err := s.ownedStoryboard(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.InitialLine != nil {
		sb.InitialLine = *req.InitialLine
	}
	if req.Storyline != nil {
		sb.Storyline = req.Storyline
	}
	if req.Title != nil {
		sb.Title = req.Title
	}
	if req.Status != nil {
		sb.Status = *req.Status
	}

	if err := s.store.Update(ctx, sb); err != nil {
		return nil, err
	}
	if err := s.store.LoadHierarchy(ctx, sb); err != nil {
		return nil, err
	}
	sb.SortHierarchy()
	return sb, nil
}

func (s *StoryboardService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.ownedStoryboard(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ──── Scenes ────

func (s *StoryboardService) AddScene(ctx context.Context, userID, storyboardID uuid.UUID, req models.SceneRequest) (*models.StoryboardScene, error) {
	fields := map[string]string{}
	checkSceneFields(fields, "", &req.SceneNumber, req.Description, req.Duration)
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if _, err := s.ownedStoryboard(ctx, userID, storyboardID); err != nil {
		return nil, err
	}

	sc := &models.StoryboardScene{
		StoryboardID: storyboardID,
		SceneNumber:  req.SceneNumber,
		Description:  req.Description,
		Duration:     req.Duration,
		Shots:        []*models.Shot{},
	}
	if err := s.store.CreateScene(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *StoryboardService) GetScene(ctx context.Context, userID, storyboardID, sceneID uuid.UUID) (*models.StoryboardScene, error) {
	sc, err := s.ownedScene(ctx, userID, storyboardID, sceneID)
	if err != nil {
		return nil, err
	}
	if sc.Shots, err = s.store.ListShots(ctx, sc.ID); err != nil {
		return nil, err
	}
	sc.SortShots()
	return sc, nil
}

func (s *StoryboardService) UpdateScene(ctx context.Context, userID, storyboardID, sceneID uuid.UUID, req models.UpdateSceneRequest) (*models.StoryboardScene, error) {
	fields := map[string]string{}
	checkSceneFields(fields, "", req.SceneNumber, req.Description, req.Duration)
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	sc, err := s.ownedScene(ctx, userID, storyboardID, sceneID)
	if err != nil {
		return nil, err
	}

	if req.SceneNumber != nil {
		sc.SceneNumber = *req.SceneNumber
	}
	if req.Description != nil {
		sc.Description = req.Description
	}
	if req.Duration != nil {
		sc.Duration = req.Duration
	}

	if err := s.store.UpdateScene(ctx, sc); err != nil {
		return nil, err
	}
	if sc.Shots, err = s.store.ListShots(ctx, sc.ID); err != nil {
		return nil, err
	}
	sc.SortShots()
	return sc, nil
}

func (s *StoryboardService) DeleteScene(ctx context.Context, userID, storyboardID, sceneID uuid.UUID) error {
	if _, err := s.ownedScene(ctx, userID, storyboardID, sceneID); err != nil {
		return err
	}
	return s.store.DeleteScene(ctx, sceneID)
}

// ──── Shots ────

func (s *StoryboardService) AddShot(ctx context.Context, userID, storyboardID, sceneID uuid.UUID, req models.ShotRequest) (*models.Shot, error) {
	fields := map[string]string{}
	shot, _ := buildShot(fields, "", req)
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if _, err := s.ownedScene(ctx, userID, storyboardID, sceneID); err != nil {
		return nil, err
	}

	shot.SceneID = sceneID
	if err := s.store.CreateShot(ctx, shot); err != nil {
		return nil, err
	}
	return shot, nil
}

func (s *StoryboardService) GetShot(ctx context.Context, userID, storyboardID, sceneID, shotID uuid.UUID) (*models.Shot, error) {
	return s.ownedShot(ctx, userID, storyboardID, sceneID, shotID)
}

func (s *StoryboardService) UpdateShot(ctx context.Context, userID, storyboardID, sceneID, shotID uuid.UUID, req models.UpdateShotRequest) (*models.Shot, error) {
	fields := map[string]string{}
	if req.ShotNumber != nil && *req.ShotNumber < 1 {
		fields["shot_number"] = "shot_number must be at least 1"
	}
	if req.UserPrompt != nil {
		checkRequiredText(fields, "user_prompt", *req.UserPrompt, maxUserPromptLen)
	}
	if req.Status != nil {
		checkShotStatus(fields, "status", *req.Status)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	shot, err := s.ownedShot(ctx, userID, storyboardID, sceneID, shotID)
	if err != nil {
		return nil, err
	}

	if req.ShotNumber != nil {
		shot.ShotNumber = *req.ShotNumber
	}
	if req.UserPrompt != nil {
		shot.UserPrompt = *req.UserPrompt
	}
	if req.StartImageURL != nil {
		shot.StartImageURL = req.StartImageURL
	}
	if req.EndImageURL != nil {
		shot.EndImageURL = req.EndImageURL
	}
	if req.VideoURL != nil {
		shot.VideoURL = req.VideoURL
	}
	if req.Status != nil {
		shot.Status = *req.Status
	}

	if err := s.store.UpdateShot(ctx, shot); err != nil {
		return nil, err
	}
	return shot, nil
}

func (s *StoryboardService) DeleteShot(ctx context.Context, userID, storyboardID, sceneID, shotID uuid.UUID) error {
	if _, err := s.ownedShot(ctx, userID, storyboardID, sceneID, shotID); err != nil {
		return err
	}
	return s.store.DeleteShot(ctx, shotID)
}

// GenerateShot renders a shot's video from its prompt and frames and stores
// the result on the shot.
func (s *StoryboardService) GenerateShot(ctx context.Context, userID, storyboardID, sceneID, shotID uuid.UUID, req models.GenerateShotRequest) (*models.GenerateShotResponse, error) {
	shot, err := s.ownedShot(ctx, userID, storyboardID, sceneID, shotID)
	if err != nil {
		return nil, err
	}
	prevStatus := shot.Status

	// The claim is a single conditional update, so only one request can start a generation.
	shot, err = s.store.ClaimShot(ctx, shot.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ConflictError{Message: "Shot is already being generated"}
	}
	if err != nil {
		return nil, err
	}

	gen, genErr := s.generator.Create(ctx, userID, models.CreateGenerationRequest{
		Prompt:         shot.UserPrompt,
		GenerationType: models.ShotMediaType,
		FirstFrame:     shot.StartImageURL,
		LastFrame:      shot.EndImageURL,
		Model:          req.Model,
		Duration:       req.Duration,
		Resolution:     req.Resolution,
	})

	// Store writes below must happen even when the caller has gone away.
	ctx = context.WithoutCancel(ctx)

	var ve *ValidationError
	switch {
	case errors.As(genErr, &ve):
		shot.Status = prevStatus
	case genErr != nil:
		shot.Status = models.ShotFailed
	case gen.Status == models.GenerationCompleted:
		shot.Status = models.ShotCompleted
		shot.VideoURL = gen.GeneratedContentURL
	case gen.Status == models.GenerationFailed:
		shot.Status = models.ShotFailed
	default:
		shot.Status = models.ShotProcessing
	}

	if err := s.store.UpdateShot(ctx, shot); err != nil {
		s.logger.Error("failed to record shot generation result", "shot_id", shot.ID, "error", err)
		return nil, err
	}
	if genErr != nil {
		return nil, genErr
	}
	return &models.GenerateShotResponse{Shot: shot, Generation: gen}, nil
}

// ──── Validation ────

func buildShot(fields map[string]string, prefix string, req models.ShotRequest) (*models.Shot, bool) {
	n := len(fields)
	if req.ShotNumber < 1 {
		fields[prefix+"shot_number"] = "shot_number must be at least 1"
	}
	checkRequiredText(fields, prefix+"user_prompt", req.UserPrompt, maxUserPromptLen)
	status := models.ShotPending
	if req.Status != nil {
		status = *req.Status
		checkShotStatus(fields, prefix+"status", status)
	}
	return &models.Shot{
		ShotNumber:    req.ShotNumber,
		UserPrompt:    req.UserPrompt,
		StartImageURL: req.StartImageURL,
		EndImageURL:   req.EndImageURL,
		VideoURL:      req.VideoURL,
		Status:        status,
	}, len(fields) == n
}

func checkSceneFields(fields map[string]string, prefix string, sceneNumber *int, description *string, duration *float64) {
	if sceneNumber != nil && *sceneNumber < 1 {
		fields[prefix+"scene_number"] = "scene_number must be at least 1"
	}
	checkOptionalText(fields, prefix+"description", description, maxDescriptionLen)
	if duration != nil && *duration < 0 {
		fields[prefix+"duration"] = "duration must not be negative"
	}
}

func checkRequiredText(fields map[string]string, name, v string, maxLen int) {
	if strings.TrimSpace(v) == "" {
		fields[name] = name + " is required"
		return
	}
	if utf8.RuneCountInString(v) > maxLen {
		fields[name] = fmt.Sprintf("%s must be at most %d characters", name, maxLen)
	}
}

func checkOptionalText(fields map[string]string, name string, v *string, maxLen int) {
	if v != nil && utf8.RuneCountInString(*v) > maxLen {
		fields[name] = fmt.Sprintf("%s must be at most %d characters", name, maxLen)
	}
}

func checkStoryboardStatus(fields map[string]string, name, v string) {
	switch v {
	case models.StoryboardDraft, models.StoryboardInProgress, models.StoryboardCompleted:
	default:
		fields[name] = "status must be one of draft, in_progress, completed"
	}
}

func checkShotStatus(fields map[string]string, name, v string) {
	switch v {
	case models.ShotPending, models.ShotProcessing, models.ShotCompleted, models.ShotFailed:
	default:
		fields[name] = "status must be one of pending, processing, completed, failed"
	}
}
