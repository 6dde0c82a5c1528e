package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"videostack-backend/internal/middleware"
	"videostack-backend/internal/models"
)

type generationService interface {
	Create(ctx context.Context, userID uuid.UUID, req models.CreateGenerationRequest) (*models.Generation, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Generation, error)
	GetStatus(ctx context.Context, userID, id uuid.UUID) (*models.GenerationStatusResponse, error)
	List(ctx context.Context, userID uuid.UUID, genType string, skip, limit int) (*models.GenerationListResponse, error)
}

type GenerationHandler struct {
	generations generationService
}

func NewGenerationHandler(generations generationService) *GenerationHandler {
	return &GenerationHandler{generations: generations}
}

// Create blocks until the generation finishes. A provider failure is still a
// created record, so it answers 201 with status "failed".
func (h *GenerationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGenerationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.generations.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)

	resp, err := h.generations.List(r.Context(), middleware.GetUserID(r.Context()), r.URL.Query().Get("generation_type"), skip, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "generation")
	if !ok {
		return
	}

	g, err := h.generations.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GenerationHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "generation")
	if !ok {
		return
	}

	st, err := h.generations.GetStatus(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
