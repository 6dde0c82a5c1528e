package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
)

// StatusFunc performs one status check for a job. An error returned with
// State == StateSucceeded means the job finished but its result could not be
// read; any other error is a missed attempt.
type StatusFunc func(ctx context.Context, jobID string) (PollResult, error)

type Outcome struct {
	URL      string
	Attempts int
}

// Poller waits for an async job by checking its status at a fixed interval.
// It makes at most MaxAttempts status calls and never calls again after a
// terminal state.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      *slog.Logger
}

func NewPoller(interval time.Duration, maxAttempts int, logger *slog.Logger) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{Interval: interval, MaxAttempts: maxAttempts, Logger: logger}
}

// MaxWait is the longest Wait can block, ignoring the time spent in status calls.
func (p *Poller) MaxWait() time.Duration {
	return p.Interval * time.Duration(p.MaxAttempts)
}

func (p *Poller) Wait(ctx context.Context, jobID string, status StatusFunc) (Outcome, error) {
	log := p.Logger.With("job_id", jobID)

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		res, err := status(ctx, jobID)
		if err != nil {
			if res.State == StateSucceeded {
				log.Error("succeeded job has no readable result", "attempt", attempt, "error", err)
				return Outcome{Attempts: attempt}, err
			}
			log.Warn("status check missed", "attempt", attempt, "error", err)
		} else {
			switch res.State {
			case StateSucceeded:
				if res.URL == "" {
					return Outcome{Attempts: attempt}, &MalformedResponseError{Reason: "succeeded without a result URL"}
				}
				log.Info("generation succeeded", "attempt", attempt)
				return Outcome{URL: res.URL, Attempts: attempt}, nil
			case StateFailed:
				msg := res.Message
				if msg == "" {
					msg = "Unknown error"
				}
				log.Warn("generation failed", "attempt", attempt, "message", msg)
				return Outcome{Attempts: attempt}, &JobFailedError{Message: msg}
			case StatePending, StateProcessing:
				log.Debug("generation in progress", "attempt", attempt, "state", res.State)
			default:
				log.Warn("unrecognized job state", "attempt", attempt, "state", res.State, "raw", res.Raw)
			}
		}

		if attempt == p.MaxAttempts {
			break
		}
		if err := p.sleep(ctx); err != nil {
			return Outcome{Attempts: attempt}, fmt.Errorf("polling interrupted: %w", err)
		}
	}

	log.Error("generation timed out", "attempts", p.MaxAttempts)
	return Outcome{Attempts: p.MaxAttempts}, &TimeoutError{Attempts: p.MaxAttempts}
}

func (p *Poller) sleep(ctx context.Context) error {
	if p.Interval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
