package models

type StoryPromptRequest struct {
	Prompt string `json:"prompt"`
}

type StoryOption struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type StoryOptions struct {
	Options []StoryOption `json:"options"`
}

type DraftShot struct {
	ShotNumber int    `json:"shot_number"`
	UserPrompt string `json:"user_prompt"`
}

type DraftScene struct {
	SceneNumber int         `json:"scene_number"`
	Description string      `json:"description"`
	Duration    float64     `json:"duration"`
	Shots       []DraftShot `json:"shots"`
}

// StoryDraft is an unsaved scene breakdown; clients post it to the storyboard API to persist it.
type StoryDraft struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	UserPrompt  string       `json:"user_prompt"`
	Scenes      []DraftScene `json:"scenes"`
}
