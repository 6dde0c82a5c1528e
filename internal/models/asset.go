package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AssetStatusActive  = "active"
	AssetStatusDeleted = "deleted"
)

type Asset struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Link      string    `json:"link"`
	Type      string    `json:"type"`   // "image" | "audio" | "video"
	Status    string    `json:"status"` // "active" | "deleted"
	CreatedAt time.Time `json:"creation_date"`
	UpdatedAt time.Time `json:"updated_date"`
}

type CreateAssetRequest struct {
	Link string `json:"link"`
	Type string `json:"type"`
}

// IsMediaType reports whether t is one of the supported media kinds.
func IsMediaType(t string) bool {
	return t == "image" || t == "audio" || t == "video"
}
