package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const DefaultArkBaseURL = "https://ark.ap-southeast.bytepluses.com/api/v3"

// ArkAdapter talks to the ByteDance ARK content generation task API.
// Submit creates a task; results are fetched with Status.
type ArkAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewArkAdapter(apiKey, baseURL string, logger *slog.Logger) *ArkAdapter {
	if baseURL == "" {
		baseURL = DefaultArkBaseURL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ArkAdapter{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
		logger:     logger.With("provider", string(TagArk)),
	}
}

func (a *ArkAdapter) Tag() Tag { return TagArk }

func (a *ArkAdapter) Limits() Limits {
	return Limits{MinDuration: 3, MaxDuration: 12, Kinds: []Kind{KindVideo, KindImage}}
}

type arkImageURL struct {
	URL string `json:"url"`
}

type arkContent struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *arkImageURL `json:"image_url,omitempty"`
	Role     string       `json:"role,omitempty"`
}

type arkTaskRequest struct {
	Model   string       `json:"model"`
	Content []arkContent `json:"content"`
}

func (a *ArkAdapter) buildTask(req Request) arkTaskRequest {
	var text string
	switch req.Kind {
	case KindImage:
		res := req.Resolution
		if res == "" {
			res = "1024x1024"
		}
		text = fmt.Sprintf("%s --resolution %s", req.Prompt, res)
	default:
		res := req.Resolution
		if res == "" {
			res = "720p"
		}
		camera := "--camerafixed false"
		if req.CameraFixed {
			camera = "--camerafixed true"
		}
		text = fmt.Sprintf("%s --resolution %s --duration %d %s", req.Prompt, res, intOr(req.Duration, 5), camera)
	}

	content := []arkContent{{Type: "text", Text: text}}
	if req.FirstFrame != "" {
		content = append(content, arkContent{
			Type:     "image_url",
			ImageURL: &arkImageURL{URL: strings.ReplaceAll(req.FirstFrame, " ", "")},
			Role:     "first_frame",
		})
	}
	if req.LastFrame != "" {
		content = append(content, arkContent{
			Type:     "image_url",
			ImageURL: &arkImageURL{URL: strings.ReplaceAll(req.LastFrame, " ", "")},
			Role:     "last_frame",
		})
	}
	return arkTaskRequest{Model: req.Model, Content: content}
}

func (a *ArkAdapter) Submit(ctx context.Context, req Request) (Submission, error) {
	payload, err := json.Marshal(a.buildTask(req))
	if err != nil {
		return Submission{}, fmt.Errorf("marshal ark task: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/contents/generations/tasks", bytes.NewReader(payload))
	if err != nil {
		return Submission{}, fmt.Errorf("create ark request: %w", err)
	}
	a.setHeaders(httpReq)

	body, err := do(a.httpClient, TagArk, httpReq)
	if err != nil {
		return Submission{}, err
	}

	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return Submission{}, &MalformedResponseError{Provider: TagArk, Reason: "task id missing"}
	}
	a.logger.Info("task created", "job_id", id, "model", req.Model, "kind", req.Kind)
	return Submission{JobID: id}, nil
}

func (a *ArkAdapter) Status(ctx context.Context, jobID string) (PollResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/contents/generations/tasks/"+url.PathEscape(jobID), nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("create ark status request: %w", err)
	}
	a.setHeaders(httpReq)

	body, err := do(a.httpClient, TagArk, httpReq)
	if err != nil {
		return PollResult{}, err
	}
	if !gjson.ValidBytes(body) {
		return PollResult{}, &MalformedResponseError{Provider: TagArk, Reason: "status response is not valid JSON"}
	}

	raw := gjson.GetBytes(body, "status").String()
	res := PollResult{State: ParseState(raw), Raw: raw}
	switch res.State {
	case StateSucceeded:
		u, err := ExtractURL(TagArk, body)
		if err != nil {
			return res, err
		}
		res.URL = u
	case StateFailed:
		e := gjson.GetBytes(body, "error")
		if e.IsObject() {
			res.Message = e.Get("message").String()
		} else {
			res.Message = e.String()
		}
	}
	return res, nil
}

func (a *ArkAdapter) setHeaders(r *http.Request) {
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+a.apiKey)
}
