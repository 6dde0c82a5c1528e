package providers

import (
	"strings"

	"github.com/tidwall/gjson"
)

// resultPaths is the lookup order across known payload shapes.
var resultPaths = []string{
	"content.video_url",
	"content.image_url",
	"content.audio_url",
	"contents.0.url",
	"data.0.videoURL",
	"data.0.imageURL",
	"data.0.audioURL",
	"urls.0",
	"url",
}

// ExtractURL returns the first non-empty URL found in a provider payload.
func ExtractURL(provider Tag, raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", &MalformedResponseError{Provider: provider, Reason: "response is not valid JSON"}
	}

	results := gjson.GetManyBytes(raw, resultPaths...)
	for _, r := range results {
		if r.Type != gjson.String {
			continue
		}
		if u := strings.TrimSpace(r.String()); u != "" {
			return u, nil
		}
	}
	return "", &MalformedResponseError{Provider: provider, Reason: "no result URL in response"}
}
