package models

import (
	"github.com/google/uuid"
)

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type GenerationStatusEvent struct {
	GenerationID        uuid.UUID `json:"generation_id"`
	Status              string    `json:"status"`
	GeneratedContentURL *string   `json:"generated_content_url,omitempty"`
	ErrorMessage        *string   `json:"error_message,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

const WSTypeGenerationStatus = "generation_status"

// GenerationUpdatesChannel is the redis pub/sub channel carrying a user's generation status events.
func GenerationUpdatesChannel(userID uuid.UUID) string {
	return "generation_updates:" + userID.String()
}
