package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"videostack-backend/internal/logging"
	"videostack-backend/internal/models"
	"videostack-backend/internal/providers"
)

type memGenerationStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Generation
}

func newMemGenerationStore() *memGenerationStore {
	return &memGenerationStore{rows: map[uuid.UUID]*models.Generation{}}
}

func (m *memGenerationStore) Create(_ context.Context, g *models.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = uuid.New()
	g.Status = models.GenerationPending
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	cp := *g
	m.rows[g.ID] = &cp
	return nil
}

func (m *memGenerationStore) GetForUser(_ context.Context, id, userID uuid.UUID) (*models.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok || g.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *g
	return &cp, nil
}

func (m *memGenerationStore) ListByUser(_ context.Context, userID uuid.UUID, genType string, limit, offset int) ([]*models.Generation, int, error) {
	return nil, 0, nil
}

func (m *memGenerationStore) update(id uuid.UUID, fn func(g *models.Generation)) (*models.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok || g.IsTerminal() {
		return nil, pgx.ErrNoRows
	}
	fn(g)
	g.UpdatedAt = time.Now()
	cp := *g
	return &cp, nil
}

func (m *memGenerationStore) MarkProcessing(_ context.Context, id uuid.UUID) (*models.Generation, error) {
	return m.update(id, func(g *models.Generation) { g.Status = models.GenerationProcessing })
}

func (m *memGenerationStore) SetProviderTask(_ context.Context, id uuid.UUID, taskID string) (*models.Generation, error) {
	return m.update(id, func(g *models.Generation) { g.ProviderTaskID = &taskID })
}

func (m *memGenerationStore) Complete(_ context.Context, id uuid.UUID, url string) (*models.Generation, error) {
	m.mu.Lock()
	pending := m.rows[id] != nil && m.rows[id].Status == models.GenerationPending
	m.mu.Unlock()
	if pending {
		return nil, pgx.ErrNoRows
	}
	return m.update(id, func(g *models.Generation) {
		now := time.Now()
		g.Status = models.GenerationCompleted
		g.GeneratedContentURL = &url
		g.CompletedAt = &now
	})
}

func (m *memGenerationStore) Fail(_ context.Context, id uuid.UUID, message string) (*models.Generation, error) {
	return m.update(id, func(g *models.Generation) {
		now := time.Now()
		g.Status = models.GenerationFailed
		g.ErrorMessage = &message
		g.CompletedAt = &now
	})
}

func (m *memGenerationStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type stubAdapter struct {
	submission providers.Submission
	submitErr  error
	states     []providers.PollResult
	calls      int
}

func (a *stubAdapter) Tag() providers.Tag       { return providers.TagArk }
func (a *stubAdapter) Limits() providers.Limits { return providers.Limits{} }
func (a *stubAdapter) Submit(context.Context, providers.Request) (providers.Submission, error) {
	return a.submission, a.submitErr
}

func (a *stubAdapter) Status(context.Context, string) (providers.PollResult, error) {
	r := a.states[min(a.calls, len(a.states)-1)]
	a.calls++
	return r, nil
}

type stubResolver struct {
	adapter providers.Adapter
}

func (r stubResolver) Prepare(req providers.Request) (providers.Adapter, providers.Request, error) {
	if req.Prompt == "" {
		return nil, req, &providers.InvalidRequestError{Fields: map[string]string{"prompt": "prompt is required"}}
	}
	if req.Model == "" {
		req.Model = "test-model"
	}
	return r.adapter, req, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	statuses []string
}

func (p *recordingPublisher) Publish(_ context.Context, g *models.Generation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, g.Status)
}

func newTestGenerationService(t *testing.T, adapter providers.Adapter) (*GenerationService, *memGenerationStore, *recordingPublisher) {
	t.Helper()
	store := newMemGenerationStore()
	pub := &recordingPublisher{}
	logger := logging.Discard()
	svc := NewGenerationService(context.Background(), store, stubResolver{adapter: adapter}, providers.NewPoller(0, 3, logger), pub, logger)
	return svc, store, pub
}

func TestGenerationCreate_Sync(t *testing.T) {
	adapter := &stubAdapter{submission: providers.Submission{URL: "https://cdn.example/img.png"}}
	svc, _, pub := newTestGenerationService(t, adapter)

	g, err := svc.Create(context.Background(), uuid.New(), models.CreateGenerationRequest{Prompt: "a cat", GenerationType: "image"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Status != models.GenerationCompleted {
		t.Fatalf("expected completed, got %s", g.Status)
	}
	if g.GeneratedContentURL == nil || *g.GeneratedContentURL != "https://cdn.example/img.png" {
		t.Fatalf("unexpected url %v", g.GeneratedContentURL)
	}
	if g.Provider != "ark" || g.Model != "test-model" {
		t.Fatalf("unexpected provider/model %s/%s", g.Provider, g.Model)
	}
	if len(pub.statuses) != 2 || pub.statuses[0] != models.GenerationProcessing || pub.statuses[1] != models.GenerationCompleted {
		t.Fatalf("unexpected published statuses %v", pub.statuses)
	}
}

func TestGenerationCreate_AsyncPollsUntilDone(t *testing.T) {
	adapter := &stubAdapter{
		submission: providers.Submission{JobID: "task-1"},
		states: []providers.PollResult{
			{State: providers.StatePending},
			{State: providers.StateProcessing},
			{State: providers.StateSucceeded, URL: "https://cdn.example/v.mp4"},
		},
	}
	svc, _, _ := newTestGenerationService(t, adapter)

	g, err := svc.Create(context.Background(), uuid.New(), models.CreateGenerationRequest{Prompt: "waves", GenerationType: "video"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Status != models.GenerationCompleted {
		t.Fatalf("expected completed, got %s", g.Status)
	}
	if g.ProviderTaskID == nil || *g.ProviderTaskID != "task-1" {
		t.Fatalf("expected provider task id to be recorded, got %v", g.ProviderTaskID)
	}
	if adapter.calls != 3 {
		t.Fatalf("expected 3 status calls, got %d", adapter.calls)
	}
}

func TestGenerationCreate_ProviderFailureIsRecorded(t *testing.T) {
	adapter := &stubAdapter{
		submission: providers.Submission{JobID: "task-2"},
		states:     []providers.PollResult{{State: providers.StateFailed, Message: "content policy"}},
	}
	svc, _, _ := newTestGenerationService(t, adapter)

	g, err := svc.Create(context.Background(), uuid.New(), models.CreateGenerationRequest{Prompt: "x", GenerationType: "video"})
	if err != nil {
		t.Fatalf("provider failure should not be a request error: %v", err)
	}
	if g.Status != models.GenerationFailed || g.ErrorMessage == nil || *g.ErrorMessage != "content policy" {
		t.Fatalf("unexpected result %s %v", g.Status, g.ErrorMessage)
	}
}

func TestGenerationCreate_TimeoutFails(t *testing.T) {
	adapter := &stubAdapter{
		submission: providers.Submission{JobID: "task-3"},
		states:     []providers.PollResult{{State: providers.StateProcessing}},
	}
	svc, _, _ := newTestGenerationService(t, adapter)

	g, err := svc.Create(context.Background(), uuid.New(), models.CreateGenerationRequest{Prompt: "x", GenerationType: "video"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Status != models.GenerationFailed {
		t.Fatalf("expected failed after timeout, got %s", g.Status)
	}
	if adapter.calls != 3 {
		t.Fatalf("expected exactly max attempts status calls, got %d", adapter.calls)
	}
}

func TestGenerationCreate_SubmitErrorFails(t *testing.T) {
	adapter := &stubAdapter{submitErr: &providers.ProviderError{Provider: "ark", StatusCode: 400, Body: "bad"}}
	svc, _, _ := newTestGenerationService(t, adapter)

	g, err := svc.Create(context.Background(), uuid.New(), models.CreateGenerationRequest{Prompt: "x", GenerationType: "image"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Status != models.GenerationFailed || g.ErrorMessage == nil {
		t.Fatalf("expected failed with message, got %s", g.Status)
	}
}

func TestGenerationCreate_ValidationPersistsNothing(t *testing.T) {
	svc, store, pub := newTestGenerationService(t, &stubAdapter{})

	bad := "ftp://example.com/a.png"
	_, err := svc.Create(context.Background(), uuid.New(), models.CreateGenerationRequest{GenerationType: "image", FirstFrame: &bad})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := ve.Fields["prompt"]; !ok {
		t.Fatalf("expected prompt field error, got %v", ve.Fields)
	}
	if _, ok := ve.Fields["first_frame"]; !ok {
		t.Fatalf("expected first_frame field error, got %v", ve.Fields)
	}
	if store.count() != 0 || len(pub.statuses) != 0 {
		t.Fatalf("validation failure must not persist or publish")
	}
}

func TestGenerationCreate_SurvivesCallerCancel(t *testing.T) {
	adapter := &stubAdapter{submission: providers.Submission{URL: "https://cdn.example/a.png"}}
	svc, _, _ := newTestGenerationService(t, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := svc.Create(ctx, uuid.New(), models.CreateGenerationRequest{Prompt: "x", GenerationType: "image"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Status != models.GenerationCompleted {
		t.Fatalf("expected completed despite cancelled caller, got %s", g.Status)
	}
}

func TestGenerationGet_OtherUserNotFound(t *testing.T) {
	adapter := &stubAdapter{submission: providers.Submission{URL: "https://cdn.example/a.png"}}
	svc, _, _ := newTestGenerationService(t, adapter)

	owner := uuid.New()
	g, err := svc.Create(context.Background(), owner, models.CreateGenerationRequest{Prompt: "x", GenerationType: "image"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Get(context.Background(), uuid.New(), g.ID)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	st, err := svc.GetStatus(context.Background(), owner, g.ID)
	if err != nil || st.Status != models.GenerationCompleted {
		t.Fatalf("owner should see status, got %v %v", st, err)
	}
}

func TestGenerationList_RejectsUnknownType(t *testing.T) {
	svc, _, _ := newTestGenerationService(t, &stubAdapter{})
	_, err := svc.List(context.Background(), uuid.New(), "hologram", 0, 0)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		skip, limit         int
		wantSkip, wantLimit int
	}{
		{0, 0, 0, 50},
		{-5, 10, 0, 10},
		{20, 500, 20, 100},
	}
	for _, tt := range tests {
		s, l := normalizePage(tt.skip, tt.limit)
		if s != tt.wantSkip || l != tt.wantLimit {
			t.Errorf("normalizePage(%d, %d) = %d, %d; want %d, %d", tt.skip, tt.limit, s, l, tt.wantSkip, tt.wantLimit)
		}
	}
}

func TestGenerationFinish_PendingCannotComplete(t *testing.T) {
	svc, store, pub := newTestGenerationService(t, &stubAdapter{})
	g := &models.Generation{UserID: uuid.New(), Prompt: "a cat", GenerationType: "image"}
	if err := store.Create(context.Background(), g); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.finish(context.Background(), g, "https://cdn.example/cat.png", nil)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if got.Status != models.GenerationPending || got.GeneratedContentURL != nil {
		t.Fatalf("pending generation must not jump to completed, got %+v", got)
	}
	if len(pub.statuses) != 0 {
		t.Fatalf("refused transition must not be published, got %v", pub.statuses)
	}

	got, err = svc.finish(context.Background(), g, "", errors.New("submit rejected"))
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if got.Status != models.GenerationFailed || got.ErrorMessage == nil || *got.ErrorMessage != "submit rejected" {
		t.Fatalf("pending generation should be allowed to fail, got %+v", got)
	}
}
