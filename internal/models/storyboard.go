package models

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	StoryboardDraft      = "draft"
	StoryboardInProgress = "in_progress"
	StoryboardCompleted  = "completed"
)

const (
	ShotPending    = "pending"
	ShotProcessing = "processing"
	ShotCompleted  = "completed"
	ShotFailed     = "failed"
)

// ShotMediaType is the generation type used to render a shot.
const ShotMediaType = "video"

type Storyboard struct {
	ID          uuid.UUID          `json:"id"`
	UserID      uuid.UUID          `json:"user_id"`
	InitialLine string             `json:"initial_line"`
	Storyline   *string            `json:"storyline"`
	Title       *string            `json:"title"`
	Status      string             `json:"status"` // "draft" | "in_progress" | "completed"
	Scenes      []*StoryboardScene `json:"scenes"`
	CreatedAt   time.Time          `json:"creation_date"`
	UpdatedAt   time.Time          `json:"updated_date"`
}

type StoryboardScene struct {
	ID           uuid.UUID `json:"id"`
	StoryboardID uuid.UUID `json:"storyboard_id"`
	SceneNumber  int       `json:"scene_number"`
	Description  *string   `json:"description"`
	Duration     *float64  `json:"duration"`
	Shots        []*Shot   `json:"shots"`
	CreatedAt    time.Time `json:"creation_date"`
	UpdatedAt    time.Time `json:"updated_date"`
}

type Shot struct {
	ID            uuid.UUID `json:"id"`
	SceneID       uuid.UUID `json:"scene_id"`
	ShotNumber    int       `json:"shot_number"`
	UserPrompt    string    `json:"user_prompt"`
	StartImageURL *string   `json:"start_image_url"`
	EndImageURL   *string   `json:"end_image_url"`
	VideoURL      *string   `json:"video_url"`
	Status        string    `json:"status"` // "pending" | "processing" | "completed" | "failed"
	CreatedAt     time.Time `json:"creation_date"`
	UpdatedAt     time.Time `json:"updated_date"`
}

type StoryboardSummary struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	InitialLine string    `json:"initial_line"`
	Storyline   *string   `json:"storyline"`
	Title       *string   `json:"title"`
	Status      string    `json:"status"`
	SceneCount  int       `json:"scene_count"`
	CreatedAt   time.Time `json:"creation_date"`
	UpdatedAt   time.Time `json:"updated_date"`
}

type StoryboardListResponse struct {
	Storyboards []*StoryboardSummary `json:"storyboards"`
	Total       int                  `json:"total"`
}

// SortHierarchy orders scenes by scene_number and each scene's shots by
// shot_number. Ties keep their stored order.
func (s *Storyboard) SortHierarchy() {
	if s.Scenes == nil {
		s.Scenes = []*StoryboardScene{}
	}
	slices.SortStableFunc(s.Scenes, func(a, b *StoryboardScene) int {
		return cmp.Compare(a.SceneNumber, b.SceneNumber)
	})
	for _, scene := range s.Scenes {
		scene.SortShots()
	}
}

func (sc *StoryboardScene) SortShots() {
	if sc.Shots == nil {
		sc.Shots = []*Shot{}
	}
	slices.SortStableFunc(sc.Shots, func(a, b *Shot) int {
		return cmp.Compare(a.ShotNumber, b.ShotNumber)
	})
}

// ──── Requests ────

type ShotRequest struct {
	ShotNumber    int     `json:"shot_number"`
	UserPrompt    string  `json:"user_prompt"`
	StartImageURL *string `json:"start_image_url"`
	EndImageURL   *string `json:"end_image_url"`
	VideoURL      *string `json:"video_url"`
	Status        *string `json:"status"`
}

type SceneRequest struct {
	SceneNumber int           `json:"scene_number"`
	Description *string       `json:"description"`
	Duration    *float64      `json:"duration"`
	Shots       []ShotRequest `json:"shots"`
}

type CreateStoryboardRequest struct {
	InitialLine string         `json:"initial_line"`
	Storyline   *string        `json:"storyline"`
	Title       *string        `json:"title"`
	Status      *string        `json:"status"`
	Scenes      []SceneRequest `json:"scenes"`
}

// Update requests use pointers: a nil field was absent from the body and is left unchanged.

type UpdateStoryboardRequest struct {
	InitialLine *string `json:"initial_line"`
	Storyline   *string `json:"storyline"`
	Title       *string `json:"title"`
	Status      *string `json:"status"`
}

type UpdateSceneRequest struct {
	SceneNumber *int     `json:"scene_number"`
	Description *string  `json:"description"`
	Duration    *float64 `json:"duration"`
}

type UpdateShotRequest struct {
	ShotNumber    *int    `json:"shot_number"`
	UserPrompt    *string `json:"user_prompt"`
	StartImageURL *string `json:"start_image_url"`
	EndImageURL   *string `json:"end_image_url"`
	VideoURL      *string `json:"video_url"`
	Status        *string `json:"status"`
}

type GenerateShotRequest struct {
	Model      string `json:"model"`
	Duration   *int   `json:"duration"`
	Resolution string `json:"resolution"`
}

type GenerateShotResponse struct {
	Shot       *Shot       `json:"shot"`
	Generation *Generation `json:"generation"`
}
