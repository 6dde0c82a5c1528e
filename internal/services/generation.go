package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"videostack-backend/internal/models"
	"videostack-backend/internal/providers"
)

type GenerationStore interface {
	Create(ctx context.Context, g *models.Generation) error
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Generation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, genType string, limit, offset int) ([]*models.Generation, int, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (*models.Generation, error)
	SetProviderTask(ctx context.Context, id uuid.UUID, taskID string) (*models.Generation, error)
	Complete(ctx context.Context, id uuid.UUID, url string) (*models.Generation, error)
	Fail(ctx context.Context, id uuid.UUID, message string) (*models.Generation, error)
}

// AdapterResolver picks and configures the adapter for a request. Implemented by *providers.Registry.
type AdapterResolver interface {
	Prepare(req providers.Request) (providers.Adapter, providers.Request, error)
}

// JobWaiter blocks until an async job finishes. Implemented by *providers.Poller.
type JobWaiter interface {
	Wait(ctx context.Context, jobID string, status providers.StatusFunc) (providers.Outcome, error)
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
	maxFrameURLLen  = 2048
)

type GenerationService struct {
	store     GenerationStore
	resolver  AdapterResolver
	waiter    JobWaiter
	publisher StatusPublisher
	logger    *slog.Logger

	// lifetime is the server's context. Waits end when it does, never when the caller goes away.
	lifetime context.Context
}

func NewGenerationService(lifetime context.Context, store GenerationStore, resolver AdapterResolver, waiter JobWaiter, publisher StatusPublisher, logger *slog.Logger) *GenerationService {
	return &GenerationService{
		store:     store,
		resolver:  resolver,
		waiter:    waiter,
		publisher: publisher,
		logger:    logger,
		lifetime:  lifetime,
	}
}

// Create runs one generation to completion inside the caller's request.
// The returned record is terminal unless the server is shutting down.
func (s *GenerationService) Create(ctx context.Context, userID uuid.UUID, req models.CreateGenerationRequest) (*models.Generation, error) {
	fields := map[string]string{}
	firstFrame := validateFrame(fields, "first_frame", req.FirstFrame)
	lastFrame := validateFrame(fields, "last_frame", req.LastFrame)

	adapter, preq, err := s.resolver.Prepare(providers.Request{
		Prompt:      req.Prompt,
		Kind:        providers.Kind(req.GenerationType),
		Model:       req.Model,
		FirstFrame:  firstFrame,
		LastFrame:   lastFrame,
		Width:       req.Width,
		Height:      req.Height,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
	})
	if err != nil {
		var ie *providers.InvalidRequestError
		if !errors.As(err, &ie) {
			return nil, err
		}
		for k, v := range ie.Fields {
			fields[k] = v
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(s.lifetime, cancel)
	defer stop()

	g := &models.Generation{
		UserID:         userID,
		Prompt:         req.Prompt,
		FirstFrame:     optionalStr(firstFrame),
		LastFrame:      optionalStr(lastFrame),
		GenerationType: req.GenerationType,
		Model:          preq.Model,
		Provider:       string(adapter.Tag()),
	}
	if err := s.store.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create generation: %w", err)
	}

	log := s.logger.With("generation_id", g.ID, "provider", g.Provider, "model", g.Model)

	g, err = s.store.MarkProcessing(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to start generation: %w", err)
	}
	s.publisher.Publish(ctx, g)

	sub, err := adapter.Submit(ctx, preq)
	if err != nil {
		log.Warn("submit failed", "error", err)
		return s.finish(ctx, g, "", err)
	}

	if !sub.Async() {
		return s.finish(ctx, g, sub.URL, nil)
	}

	async, ok := adapter.(providers.AsyncAdapter)
	if !ok {
		return s.finish(ctx, g, "", fmt.Errorf("%s returned a job id but cannot report job status", adapter.Tag()))
	}

	if updated, err := s.store.SetProviderTask(ctx, g.ID, sub.JobID); err == nil {
		g = updated
	} else {
		log.Error("failed to record provider task", "job_id", sub.JobID, "error", err)
	}

	out, err := s.waiter.Wait(ctx, sub.JobID, async.Status)
	if err != nil {
		if s.lifetime.Err() != nil {
			// Shutting down: leave the row in processing with its task id.
			return g, nil
		}
		return s.finish(ctx, g, "", err)
	}
	log.Info("generation completed", "attempts", out.Attempts)
	return s.finish(ctx, g, out.URL, nil)
}

// finish writes the terminal state. A guarded update that matches nothing
// means another writer already finalized the row, so the stored row wins.
func (s *GenerationService) finish(ctx context.Context, g *models.Generation, url string, cause error) (*models.Generation, error) {
	to := models.GenerationCompleted
	if cause != nil {
		to = models.GenerationFailed
	}
	if !models.CanTransitionGeneration(g.Status, to) {
		s.logger.Warn("refusing generation transition", "generation_id", g.ID, "from", g.Status, "to", to)
		return s.store.GetForUser(ctx, g.ID, g.UserID)
	}

	var (
		updated *models.Generation
		err     error
	)
	if cause == nil {
		updated, err = s.store.Complete(ctx, g.ID, url)
	} else {
		updated, err = s.store.Fail(ctx, g.ID, failureMessage(cause))
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return s.store.GetForUser(ctx, g.ID, g.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record generation result: %w", err)
	}

	s.publisher.Publish(ctx, updated)
	return updated, nil
}

func failureMessage(err error) string {
	var jf *providers.JobFailedError
	if errors.As(err, &jf) {
		return jf.Message
	}
	return err.Error()
}

func validateFrame(fields map[string]string, name string, v *string) string {
	if v == nil {
		return ""
	}
	u := strings.TrimSpace(*v)
	if u == "" {
		return ""
	}
	if len(u) > maxFrameURLLen {
		fields[name] = fmt.Sprintf("%s must be at most %d characters", name, maxFrameURLLen)
	} else if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		fields[name] = name + " must be an http(s) URL"
	}
	return u
}

func (s *GenerationService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Generation, error) {
	g, err := s.store.GetForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Generation not found"}
		}
		return nil, err
	}
	return g, nil
}

func (s *GenerationService) GetStatus(ctx context.Context, userID, id uuid.UUID) (*models.GenerationStatusResponse, error) {
	g, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &models.GenerationStatusResponse{
		ID:                  g.ID,
		Status:              g.Status,
		GeneratedContentURL: g.GeneratedContentURL,
		ErrorMessage:        g.ErrorMessage,
	}, nil
}

func (s *GenerationService) List(ctx context.Context, userID uuid.UUID, genType string, skip, limit int) (*models.GenerationListResponse, error) {
	if genType != "" {
		if _, ok := providers.ParseKind(genType); !ok {
			return nil, &ValidationError{Fields: map[string]string{"generation_type": "generation_type must be one of image, video, audio"}}
		}
	}
	skip, limit = normalizePage(skip, limit)

	gens, total, err := s.store.ListByUser(ctx, userID, genType, limit, skip)
	if err != nil {
		return nil, err
	}
	if gens == nil {
		gens = []*models.Generation{}
	}
	return &models.GenerationListResponse{Generations: gens, Total: total}, nil
}

func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return skip, limit
}
