package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPollinationsImageURL = "https://image.pollinations.ai"
	DefaultPollinationsAudioURL = "https://text.pollinations.ai"

	// Anything shorter is an error page, not media.
	minMediaBytes = 100
)

// PollinationsAdapter renders images and speech from a GET URL. The request
// URL itself is the content URL; Submit fetches it once to confirm it renders.
type PollinationsAdapter struct {
	imageBase  string
	audioBase  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewPollinationsAdapter(imageBase, audioBase string, logger *slog.Logger) *PollinationsAdapter {
	if imageBase == "" {
		imageBase = DefaultPollinationsImageURL
	}
	if audioBase == "" {
		audioBase = DefaultPollinationsAudioURL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PollinationsAdapter{
		imageBase:  strings.TrimRight(imageBase, "/"),
		audioBase:  strings.TrimRight(audioBase, "/"),
		httpClient: newHTTPClient(),
		logger:     logger.With("provider", string(TagPollinations)),
	}
}

func (p *PollinationsAdapter) Tag() Tag { return TagPollinations }

func (p *PollinationsAdapter) Limits() Limits {
	return Limits{MinWidth: 256, MaxWidth: 2048, MinHeight: 256, MaxHeight: 2048, Kinds: []Kind{KindImage, KindAudio}}
}

// ContentURL builds the GET URL that renders req.
func (p *PollinationsAdapter) ContentURL(req Request) string {
	escaped := url.PathEscape(req.Prompt)
	q := url.Values{}
	if req.Kind == KindAudio {
		q.Set("model", "openai-audio")
		voice := req.Voice
		if voice == "" {
			voice = "alloy"
		}
		q.Set("voice", voice)
		return fmt.Sprintf("%s/%s?%s", p.audioBase, escaped, q.Encode())
	}

	q.Set("width", strconv.Itoa(intOr(req.Width, 1024)))
	q.Set("height", strconv.Itoa(intOr(req.Height, 1024)))
	if req.Model != "" {
		q.Set("model", req.Model)
	}
	q.Set("nologo", "true")
	return fmt.Sprintf("%s/prompt/%s?%s", p.imageBase, escaped, q.Encode())
}

func (p *PollinationsAdapter) Submit(ctx context.Context, req Request) (Submission, error) {
	contentURL := p.ContentURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return Submission{}, fmt.Errorf("create pollinations request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "videostack-backend/1.0")

	body, err := do(p.httpClient, TagPollinations, httpReq)
	if err != nil {
		return Submission{}, err
	}
	if len(body) < minMediaBytes {
		return Submission{}, &MalformedResponseError{
			Provider: TagPollinations,
			Reason:   fmt.Sprintf("response too small (%d bytes)", len(body)),
		}
	}

	p.logger.Info("media rendered", "kind", req.Kind, "bytes", len(body))
	return Submission{URL: contentURL}, nil
}
