package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"videostack-backend/internal/models"
)

const (
	storyOptionCount  = 2
	maxDraftScenes    = 6
	minSceneSeconds   = 2.0
	maxSceneSeconds   = 10.0
	maxStoryPromptLen = 2000
)

const optionsInstruction = `You are a world-class cinematic video director. Generate exactly two options for the following task.
Expand the user prompt into a story. Do not mention scenes, shots, or the length of the story.
Focus on a good story, not on describing the setting. Give each option an interesting title.
Write the story based on the user prompt, but be creative.
Respond with JSON: {"options":[{"title":string,"content":string},{"title":string,"content":string}]}`

const scenesInstruction = `You are a world-class cinematic video director. Come up with a short storyboard with at most 6 scenes.
Every scene has at least one shot, and each shot has a prompt that will be used to generate its video.
Group shots that reference each other into the same scene so every scene is visually coherent.
Each shot prompt is a single literal, precise paragraph under 100 words that repeats every element it needs from earlier scenes.
Give each scene a duration in seconds between 2 and 10.
Respond with JSON: {"title":string,"description":string,"scenes":[{"scene_number":int,"description":string,"duration":number,"shots":[{"shot_number":int,"user_prompt":string}]}]}`

// StoryService drafts story options and scene breakdowns. Drafts are not persisted.
type StoryService struct {
	gen    TextGenerator
	logger *slog.Logger
}

// NewStoryService accepts a nil generator; every call then reports the feature as unavailable.
func NewStoryService(gen TextGenerator, logger *slog.Logger) *StoryService {
	return &StoryService{gen: gen, logger: logger}
}

func (s *StoryService) ready(prompt string) error {
	if s.gen == nil {
		return &UnavailableError{Message: "Story generation is not configured"}
	}
	fields := map[string]string{}
	checkRequiredText(fields, "prompt", prompt, maxStoryPromptLen)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *StoryService) Options(ctx context.Context, prompt string) (*models.StoryOptions, error) {
	if err := s.ready(prompt); err != nil {
		return nil, err
	}

	raw, err := s.gen.GenerateJSON(ctx, optionsInstruction, prompt)
	if err != nil {
		return nil, err
	}

	var out models.StoryOptions
	if err := decodeChecked(optionsSchema, raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse story options: %w", err)
	}

	opts := make([]models.StoryOption, 0, storyOptionCount)
	for _, o := range out.Options {
		if strings.TrimSpace(o.Content) == "" {
			continue
		}
		opts = append(opts, models.StoryOption{Title: strings.TrimSpace(o.Title), Content: strings.TrimSpace(o.Content)})
		if len(opts) == storyOptionCount {
			break
		}
	}
	if len(opts) < storyOptionCount {
		s.logger.Warn("story options response incomplete", "returned", len(out.Options))
		return nil, fmt.Errorf("expected %d story options, got %d", storyOptionCount, len(opts))
	}
	return &models.StoryOptions{Options: opts}, nil
}

func (s *StoryService) Scenes(ctx context.Context, prompt string) (*models.StoryDraft, error) {
	if err := s.ready(prompt); err != nil {
		return nil, err
	}

	raw, err := s.gen.GenerateJSON(ctx, scenesInstruction, fmt.Sprintf("User prompt: %q", prompt))
	if err != nil {
		return nil, err
	}

	var draft models.StoryDraft
	if err := decodeChecked(draftSchema, raw, &draft); err != nil {
		return nil, fmt.Errorf("failed to parse storyboard draft: %w", err)
	}
	draft.UserPrompt = prompt

	normalizeDraft(&draft)
	if len(draft.Scenes) == 0 {
		return nil, fmt.Errorf("storyboard draft has no scenes")
	}
	return &draft, nil
}

// normalizeDraft makes a model-produced draft acceptable to the storyboard
// API: numbering from 1, at most six scenes, clamped durations, and at least
// one non-empty shot per scene.
func normalizeDraft(d *models.StoryDraft) {
	scenes := make([]models.DraftScene, 0, min(len(d.Scenes), maxDraftScenes))
	for _, sc := range d.Scenes {
		if len(scenes) == maxDraftScenes {
			break
		}

		shots := make([]models.DraftShot, 0, len(sc.Shots))
		for _, sh := range sc.Shots {
			p := strings.TrimSpace(sh.UserPrompt)
			if p == "" {
				continue
			}
			shots = append(shots, models.DraftShot{ShotNumber: len(shots) + 1, UserPrompt: p})
		}

		desc := strings.TrimSpace(sc.Description)
		if len(shots) == 0 {
			if desc == "" {
				continue
			}
			shots = append(shots, models.DraftShot{ShotNumber: 1, UserPrompt: desc})
		}

		scenes = append(scenes, models.DraftScene{
			SceneNumber: len(scenes) + 1,
			Description: desc,
			Duration:    min(max(sc.Duration, minSceneSeconds), maxSceneSeconds),
			Shots:       shots,
		})
	}
	d.Scenes = scenes
}
