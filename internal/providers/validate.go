package providers

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxPromptLength = 1000
	MinDimension    = 200
	MaxDimension    = 4096
	MinDuration     = 3
	MaxDuration     = 300
)

// Validate checks req against the global bounds and the adapter's narrower ones.
// It reports every failing field at once.
func Validate(req Request, limits Limits) error {
	fields := map[string]string{}

	prompt := strings.TrimSpace(req.Prompt)
	switch {
	case prompt == "":
		fields["prompt"] = "prompt is required"
	case utf8.RuneCountInString(req.Prompt) > MaxPromptLength:
		fields["prompt"] = fmt.Sprintf("prompt must be at most %d characters", MaxPromptLength)
	}

	if _, ok := ParseKind(string(req.Kind)); !ok {
		fields["generation_type"] = "generation_type must be one of image, video, audio"
	} else if len(limits.Kinds) > 0 && !limits.Supports(req.Kind) {
		fields["generation_type"] = fmt.Sprintf("model does not support %s generation", req.Kind)
	}

	checkRange(fields, "width", req.Width, narrow(MinDimension, limits.MinWidth, true), narrow(MaxDimension, limits.MaxWidth, false))
	checkRange(fields, "height", req.Height, narrow(MinDimension, limits.MinHeight, true), narrow(MaxDimension, limits.MaxHeight, false))
	checkRange(fields, "duration", req.Duration, narrow(MinDuration, limits.MinDuration, true), narrow(MaxDuration, limits.MaxDuration, false))

	if len(fields) > 0 {
		return &InvalidRequestError{Fields: fields}
	}
	return nil
}

func checkRange(fields map[string]string, name string, v *int, lo, hi int) {
	if v == nil {
		return
	}
	if *v < lo || *v > hi {
		fields[name] = fmt.Sprintf("%s must be between %d and %d", name, lo, hi)
	}
}

// narrow picks the tighter of the global bound and the adapter bound.
func narrow(global, adapter int, lower bool) int {
	if adapter == 0 {
		return global
	}
	if lower {
		return max(global, adapter)
	}
	return min(global, adapter)
}
