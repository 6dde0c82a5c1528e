package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const DefaultRunwareBaseURL = "https://api.runware.ai/v1"

// RunwareAdapter runs synchronous image and video inference over the Runware REST API.
type RunwareAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewRunwareAdapter(apiKey, baseURL string, logger *slog.Logger) *RunwareAdapter {
	if baseURL == "" {
		baseURL = DefaultRunwareBaseURL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RunwareAdapter{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
		logger:     logger.With("provider", string(TagRunware)),
	}
}

func (r *RunwareAdapter) Tag() Tag { return TagRunware }

func (r *RunwareAdapter) Limits() Limits {
	return Limits{MinWidth: 256, MaxWidth: 2048, MinHeight: 256, MaxHeight: 2048, MaxDuration: 10, Kinds: []Kind{KindImage, KindVideo}}
}

type runwareTask struct {
	TaskType       string `json:"taskType"`
	TaskUUID       string `json:"taskUUID"`
	PositivePrompt string `json:"positivePrompt"`
	Model          string `json:"model"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	NumberResults  int    `json:"numberResults"`
	OutputType     string `json:"outputType,omitempty"`
	Duration       int    `json:"duration,omitempty"`
	DeliveryMethod string `json:"deliveryMethod,omitempty"`
}

func (r *RunwareAdapter) buildTask(req Request) runwareTask {
	task := runwareTask{
		TaskUUID:       uuid.NewString(),
		PositivePrompt: req.Prompt,
		Model:          req.Model,
		Width:          intOr(req.Width, 1024),
		Height:         intOr(req.Height, 1024),
		NumberResults:  1,
	}
	if req.Kind == KindVideo {
		task.TaskType = "videoInference"
		task.Duration = intOr(req.Duration, 5)
		task.DeliveryMethod = "sync"
	} else {
		task.TaskType = "imageInference"
		task.OutputType = "URL"
	}
	return task
}

func (r *RunwareAdapter) Submit(ctx context.Context, req Request) (Submission, error) {
	task := r.buildTask(req)
	payload, err := json.Marshal([]runwareTask{task})
	if err != nil {
		return Submission{}, fmt.Errorf("marshal runware task: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Submission{}, fmt.Errorf("create runware request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	body, err := do(r.httpClient, TagRunware, httpReq)
	if err != nil {
		return Submission{}, err
	}

	if msg := gjson.GetBytes(body, "errors.0.message"); msg.Exists() {
		return Submission{}, &ProviderError{Provider: TagRunware, StatusCode: http.StatusOK, Body: msg.String()}
	}

	u, err := ExtractURL(TagRunware, body)
	if err != nil {
		return Submission{}, err
	}
	r.logger.Info("inference completed", "task_uuid", task.TaskUUID, "model", req.Model, "kind", req.Kind)
	return Submission{URL: u}, nil
}
