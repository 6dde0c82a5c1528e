package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// TextGenerator produces a JSON document from a system instruction and a user prompt.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
}

type GeminiService struct {
	client    *genai.Client
	modelName string
	rateChan  chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
		rateChan:  rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
		return &RateLimitError{Message: "Story generation is busy. Please try again later."}
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0.8)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(system))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return stripCodeFence(extractText(resp)), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
