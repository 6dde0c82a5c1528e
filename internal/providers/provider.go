package providers

import (
	"context"
	"slices"
)

// Kind is the media type a generation produces.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindImage, KindVideo, KindAudio:
		return k, true
	}
	return "", false
}

// Tag identifies a provider backend. Models are mapped to tags by the catalog.
type Tag string

const (
	TagArk          Tag = "ark"
	TagRunware      Tag = "runware"
	TagPollinations Tag = "pollinations"
)

func (t Tag) Valid() bool {
	return t == TagArk || t == TagRunware || t == TagPollinations
}

// Request is the provider-neutral description of one generation.
type Request struct {
	Prompt      string
	Kind        Kind
	Model       string
	FirstFrame  string
	LastFrame   string
	Width       *int
	Height      *int
	Duration    *int
	AspectRatio string
	Resolution  string
	Voice       string
	CameraFixed bool
}

// Submission is the result of Submit. Exactly one of URL and JobID is set.
type Submission struct {
	URL   string
	JobID string
}

func (s Submission) Async() bool { return s.JobID != "" }

// Limits narrows the global request bounds for one adapter. Zero means no narrower bound.
type Limits struct {
	MinWidth    int
	MaxWidth    int
	MinHeight   int
	MaxHeight   int
	MinDuration int
	MaxDuration int
	Kinds       []Kind
}

func (l Limits) Supports(k Kind) bool {
	return slices.Contains(l.Kinds, k)
}

// Adapter performs exactly one outbound request per Submit and never retries.
type Adapter interface {
	Tag() Tag
	Limits() Limits
	Submit(ctx context.Context, req Request) (Submission, error)
}

// AsyncAdapter is implemented by providers that answer Submit with a job id.
type AsyncAdapter interface {
	Adapter
	Status(ctx context.Context, jobID string) (PollResult, error)
}

// State is a job state after provider synonyms are folded in.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateUnknown    State = "unknown"
)

func ParseState(s string) State {
	switch s {
	case "pending", "queued":
		return StatePending
	case "processing", "running":
		return StateProcessing
	case "succeeded":
		return StateSucceeded
	case "failed":
		return StateFailed
	}
	return StateUnknown
}

// PollResult is one status observation. URL is set when State is succeeded,
// Message when it is failed. Raw keeps the provider payload for logging.
type PollResult struct {
	State   State
	URL     string
	Message string
	Raw     string
}
