package handlers

import (
	"context"
	"net/http"

	"videostack-backend/internal/models"
)

type storyService interface {
	Options(ctx context.Context, prompt string) (*models.StoryOptions, error)
	Scenes(ctx context.Context, prompt string) (*models.StoryDraft, error)
}

// StoryHandler serves LLM story drafts. Nothing here is persisted.
type StoryHandler struct {
	stories storyService
}

func NewStoryHandler(stories storyService) *StoryHandler {
	return &StoryHandler{stories: stories}
}

func (h *StoryHandler) Options(w http.ResponseWriter, r *http.Request) {
	var req models.StoryPromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	opts, err := h.stories.Options(r.Context(), req.Prompt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (h *StoryHandler) Scenes(w http.ResponseWriter, r *http.Request) {
	var req models.StoryPromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.stories.Scenes(r.Context(), req.Prompt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}
