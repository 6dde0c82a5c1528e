package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"videostack-backend/internal/middleware"
	"videostack-backend/internal/models"
)

type storyboardService interface {
	Create(ctx context.Context, userID uuid.UUID, req models.CreateStoryboardRequest) (*models.Storyboard, error)
	List(ctx context.Context, userID uuid.UUID, skip, limit int) (*models.StoryboardListResponse, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Storyboard, error)
	Update(ctx context.Context, userID, id uuid.UUID, req models.UpdateStoryboardRequest) (*models.Storyboard, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error

	AddScene(ctx context.Context, userID, storyboardID uuid.UUID, req models.SceneRequest) (*models.StoryboardScene, error)
	GetScene(ctx context.Context, userID, storyboardID, sceneID uuid.UUID) (*models.StoryboardScene, error)
	UpdateScene(ctx context.Context, userID, storyboardID, sceneID uuid.UUID, req models.UpdateSceneRequest) (*models.StoryboardScene, error)
	DeleteScene(ctx context.Context, userID, storyboardID, sceneID uuid.UUID) error

	AddShot(ctx context.Context, userID, storyboardID, sceneID uuid.UUID, req models.ShotRequest) (*models.Shot, error)
	GetShot(ctx context.Context, userID, storyboardID, sceneID, shotID uuid.UUID) (*models.Shot, error)
	UpdateShot(ctx context.Context, userID, storyboardID, sceneID, shotID uuid.UUID, req models.UpdateShotRequest) (*models.Shot, error)
	DeleteShot(ctx context.Context, userID, storyboardID, sceneID, shotID uuid.UUID) error
	GenerateShot(ctx context.Context, userID, storyboardID, sceneID, shotID uuid.UUID, req models.GenerateShotRequest) (*models.GenerateShotResponse, error)
}

type StoryboardHandler struct {
	storyboards storyboardService
}

func NewStoryboardHandler(storyboards storyboardService) *StoryboardHandler {
	return &StoryboardHandler{storyboards: storyboards}
}

// routeIDs holds the ids of a storyboard route, parsed outermost first.
type routeIDs struct {
	user       uuid.UUID
	storyboard uuid.UUID
	scene      uuid.UUID
	shot       uuid.UUID
}

func parsePath(w http.ResponseWriter, r *http.Request, depth int) (routeIDs, bool) {
	p := routeIDs{user: middleware.GetUserID(r.Context())}
	var ok bool
	if p.storyboard, ok = uuidParam(w, r, "storyboardID", "storyboard"); !ok {
		return p, false
	}
	if depth > 1 {
		if p.scene, ok = uuidParam(w, r, "sceneID", "scene"); !ok {
			return p, false
		}
	}
	if depth > 2 {
		if p.shot, ok = uuidParam(w, r, "shotID", "shot"); !ok {
			return p, false
		}
	}
	return p, true
}

// ──── Storyboards ────

func (h *StoryboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStoryboardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sb, err := h.storyboards.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sb)
}

func (h *StoryboardHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)
	resp, err := h.storyboards.List(r.Context(), middleware.GetUserID(r.Context()), skip, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StoryboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 1)
	if !ok {
		return
	}
	sb, err := h.storyboards.Get(r.Context(), p.user, p.storyboard)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (h *StoryboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 1)
	if !ok {
		return
	}
	var req models.UpdateStoryboardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sb, err := h.storyboards.Update(r.Context(), p.user, p.storyboard, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (h *StoryboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 1)
	if !ok {
		return
	}
	if err := h.storyboards.Delete(r.Context(), p.user, p.storyboard); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ──── Scenes ────

func (h *StoryboardHandler) CreateScene(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 1)
	if !ok {
		return
	}
	var req models.SceneRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sc, err := h.storyboards.AddScene(r.Context(), p.user, p.storyboard, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (h *StoryboardHandler) GetScene(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 2)
	if !ok {
		return
	}
	sc, err := h.storyboards.GetScene(r.Context(), p.user, p.storyboard, p.scene)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *StoryboardHandler) UpdateScene(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 2)
	if !ok {
		return
	}
	var req models.UpdateSceneRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sc, err := h.storyboards.UpdateScene(r.Context(), p.user, p.storyboard, p.scene, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *StoryboardHandler) DeleteScene(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 2)
	if !ok {
		return
	}
	if err := h.storyboards.DeleteScene(r.Context(), p.user, p.storyboard, p.scene); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ──── Shots ────

func (h *StoryboardHandler) CreateShot(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 2)
	if !ok {
		return
	}
	var req models.ShotRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shot, err := h.storyboards.AddShot(r.Context(), p.user, p.storyboard, p.scene, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, shot)
}

func (h *StoryboardHandler) GetShot(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 3)
	if !ok {
		return
	}
	shot, err := h.storyboards.GetShot(r.Context(), p.user, p.storyboard, p.scene, p.shot)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shot)
}

func (h *StoryboardHandler) UpdateShot(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 3)
	if !ok {
		return
	}
	var req models.UpdateShotRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shot, err := h.storyboards.UpdateShot(r.Context(), p.user, p.storyboard, p.scene, p.shot, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shot)
}

func (h *StoryboardHandler) DeleteShot(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 3)
	if !ok {
		return
	}
	if err := h.storyboards.DeleteShot(r.Context(), p.user, p.storyboard, p.scene, p.shot); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateShot accepts an empty body, which means catalog defaults.
func (h *StoryboardHandler) GenerateShot(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePath(w, r, 3)
	if !ok {
		return
	}
	var req models.GenerateShotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	resp, err := h.storyboards.GenerateShot(r.Context(), p.user, p.storyboard, p.scene, p.shot, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
