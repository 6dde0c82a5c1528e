package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	GenerationPending    = "pending"
	GenerationProcessing = "processing"
	GenerationCompleted  = "completed"
	GenerationFailed     = "failed"
)

type Generation struct {
	ID                  uuid.UUID  `json:"id"`
	UserID              uuid.UUID  `json:"user_id"`
	Prompt              string     `json:"prompt"`
	FirstFrame          *string    `json:"first_frame"`
	LastFrame           *string    `json:"last_frame"`
	GenerationType      string     `json:"generation_type"` // "image" | "video" | "audio"
	Model               string     `json:"model"`
	Provider            string     `json:"provider"`
	ProviderTaskID      *string    `json:"provider_task_id"`
	Status              string     `json:"status"` // "pending" | "processing" | "completed" | "failed"
	GeneratedContentURL *string    `json:"generated_content_url"`
	ErrorMessage        *string    `json:"error_message"`
	CreatedAt           time.Time  `json:"creation_date"`
	UpdatedAt           time.Time  `json:"updated_date"`
	CompletedAt         *time.Time `json:"completed_at"`
}

// IsTerminal reports whether the generation has reached completed or failed.
func (g *Generation) IsTerminal() bool {
	return IsTerminalGenerationStatus(g.Status)
}

func IsTerminalGenerationStatus(status string) bool {
	return status == GenerationCompleted || status == GenerationFailed
}

// CanTransitionGeneration enforces pending -> processing -> {completed, failed}.
// A pending generation may also fail before it is submitted.
func CanTransitionGeneration(from, to string) bool {
	switch from {
	case GenerationPending:
		return to == GenerationProcessing || to == GenerationFailed
	case GenerationProcessing:
		return to == GenerationCompleted || to == GenerationFailed
	default:
		return false
	}
}

type CreateGenerationRequest struct {
	Prompt         string  `json:"prompt"`
	GenerationType string  `json:"generation_type"`
	FirstFrame     *string `json:"first_frame"`
	LastFrame      *string `json:"last_frame"`
	Model          string  `json:"model"`
	Duration       *int    `json:"duration"`
	Width          *int    `json:"width"`
	Height         *int    `json:"height"`
	AspectRatio    string  `json:"aspect_ratio"`
	Resolution     string  `json:"resolution"`
}

type GenerationStatusResponse struct {
	ID                  uuid.UUID `json:"id"`
	Status              string    `json:"status"`
	GeneratedContentURL *string   `json:"generated_content_url"`
	ErrorMessage        *string   `json:"error_message"`
}

type GenerationListResponse struct {
	Generations []*Generation `json:"generations"`
	Total       int           `json:"total"`
}
