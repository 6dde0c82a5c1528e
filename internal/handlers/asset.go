package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"videostack-backend/internal/middleware"
	"videostack-backend/internal/models"
)

const maxAssetLinkLen = 2048

type assetRepository interface {
	Create(ctx context.Context, a *models.Asset) error
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Asset, error)
	SoftDelete(ctx context.Context, id, userID uuid.UUID) error
}

type AssetHandler struct {
	assetRepo assetRepository
}

func NewAssetHandler(assetRepo assetRepository) *AssetHandler {
	return &AssetHandler{assetRepo: assetRepo}
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assetRepo.ListActiveByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if assets == nil {
		assets = []*models.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	link := strings.TrimSpace(req.Link)
	switch {
	case link == "":
		fields["link"] = "link is required"
	case utf8.RuneCountInString(link) > maxAssetLinkLen:
		fields["link"] = "link must be at most 2048 characters"
	}
	if !models.IsMediaType(req.Type) {
		fields["type"] = "type must be one of image, audio, video"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	asset := &models.Asset{
		UserID: middleware.GetUserID(r.Context()),
		Link:   link,
		Type:   req.Type,
	}
	if err := h.assetRepo.Create(r.Context(), asset); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// Delete soft-deletes the asset. Assets of other users look absent.
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "asset")
	if !ok {
		return
	}

	if err := h.assetRepo.SoftDelete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Asset not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
