package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"videostack-backend/internal/logging"
	"videostack-backend/internal/models"
)

type memStoryboardStore struct {
	boards map[uuid.UUID]*models.Storyboard
	scenes map[uuid.UUID]*models.StoryboardScene
	shots  map[uuid.UUID]*models.Shot

	// failShotInsert makes the nth shot insert of CreateAggregate fail (1-based).
	failShotInsert int
}

func newMemStoryboardStore() *memStoryboardStore {
	return &memStoryboardStore{
		boards: map[uuid.UUID]*models.Storyboard{},
		scenes: map[uuid.UUID]*models.StoryboardScene{},
		shots:  map[uuid.UUID]*models.Shot{},
	}
}

// CreateAggregate stages every row and commits only when all inserts succeed.
func (m *memStoryboardStore) CreateAggregate(_ context.Context, sb *models.Storyboard) error {
	scenes := map[uuid.UUID]*models.StoryboardScene{}
	shots := map[uuid.UUID]*models.Shot{}
	inserted := 0

	sb.ID = uuid.New()
	for _, sc := range sb.Scenes {
		sc.StoryboardID = sb.ID
		sc.ID = uuid.New()
		scCopy := *sc
		scCopy.Shots = nil
		scenes[sc.ID] = &scCopy
		for _, sh := range sc.Shots {
			inserted++
			if inserted == m.failShotInsert {
				return errors.New("insert shot: connection reset")
			}
			sh.SceneID = sc.ID
			sh.ID = uuid.New()
			shCopy := *sh
			shots[sh.ID] = &shCopy
		}
	}

	m.boards[sb.ID] = sb
	for id, sc := range scenes {
		m.scenes[id] = sc
	}
	for id, sh := range shots {
		m.shots[id] = sh
	}
	return nil
}

func (m *memStoryboardStore) GetByID(_ context.Context, id uuid.UUID) (*models.Storyboard, error) {
	sb, ok := m.boards[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *sb
	cp.Scenes = nil
	return &cp, nil
}

func (m *memStoryboardStore) LoadHierarchy(_ context.Context, sb *models.Storyboard) error {
	sb.Scenes = nil
	for _, sc := range m.scenes {
		if sc.StoryboardID != sb.ID {
			continue
		}
		cp := *sc
		cp.Shots, _ = m.ListShots(context.Background(), sc.ID)
		sb.Scenes = append(sb.Scenes, &cp)
	}
	return nil
}

func (m *memStoryboardStore) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*models.StoryboardSummary, int, error) {
	var out []*models.StoryboardSummary
	for _, sb := range m.boards {
		if sb.UserID == userID {
			out = append(out, &models.StoryboardSummary{ID: sb.ID, InitialLine: sb.InitialLine})
		}
	}
	return out, len(out), nil
}

func (m *memStoryboardStore) Update(_ context.Context, sb *models.Storyboard) error {
	cp := *sb
	m.boards[sb.ID] = &cp
	return nil
}

func (m *memStoryboardStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.boards, id)
	for sid, sc := range m.scenes {
		if sc.StoryboardID == id {
			_ = m.DeleteScene(context.Background(), sid)
		}
	}
	return nil
}

func (m *memStoryboardStore) CreateScene(_ context.Context, sc *models.StoryboardScene) error {
	sc.ID = uuid.New()
	cp := *sc
	cp.Shots = nil
	m.scenes[sc.ID] = &cp
	return nil
}

func (m *memStoryboardStore) GetScene(_ context.Context, id uuid.UUID) (*models.StoryboardScene, error) {
	sc, ok := m.scenes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *sc
	return &cp, nil
}

func (m *memStoryboardStore) ListShots(_ context.Context, sceneID uuid.UUID) ([]*models.Shot, error) {
	var out []*models.Shot
	for _, sh := range m.shots {
		if sh.SceneID == sceneID {
			cp := *sh
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStoryboardStore) UpdateScene(_ context.Context, sc *models.StoryboardScene) error {
	cp := *sc
	cp.Shots = nil
	m.scenes[sc.ID] = &cp
	return nil
}

func (m *memStoryboardStore) DeleteScene(_ context.Context, id uuid.UUID) error {
	delete(m.scenes, id)
	for shid, sh := range m.shots {
		if sh.SceneID == id {
			delete(m.shots, shid)
		}
	}
	return nil
}

func (m *memStoryboardStore) CreateShot(_ context.Context, s *models.Shot) error {
	s.ID = uuid.New()
	cp := *s
	m.shots[s.ID] = &cp
	return nil
}

func (m *memStoryboardStore) GetShot(_ context.Context, id uuid.UUID) (*models.Shot, error) {
	sh, ok := m.shots[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *sh
	return &cp, nil
}

func (m *memStoryboardStore) UpdateShot(_ context.Context, s *models.Shot) error {
	cp := *s
	m.shots[s.ID] = &cp
	return nil
}

func (m *memStoryboardStore) ClaimShot(_ context.Context, id uuid.UUID) (*models.Shot, error) {
	sh, ok := m.shots[id]
	if !ok || sh.Status == models.ShotProcessing {
		return nil, pgx.ErrNoRows
	}
	sh.Status = models.ShotProcessing
	cp := *sh
	return &cp, nil
}

func (m *memStoryboardStore) DeleteShot(_ context.Context, id uuid.UUID) error {
	delete(m.shots, id)
	return nil
}

type stubGenerator struct {
	gen    *models.Generation
	err    error
	got    models.CreateGenerationRequest
	calls  int
	during func()
}

func (g *stubGenerator) Create(_ context.Context, _ uuid.UUID, req models.CreateGenerationRequest) (*models.Generation, error) {
	g.calls++
	g.got = req
	if g.during != nil {
		g.during()
	}
	return g.gen, g.err
}

func strp(s string) *string { return &s }

func newTestStoryboardService(gen Generator) (*StoryboardService, *memStoryboardStore) {
	store := newMemStoryboardStore()
	return NewStoryboardService(store, gen, logging.Discard()), store
}

func seedStoryboard(t *testing.T, svc *StoryboardService, userID uuid.UUID) *models.Storyboard {
	t.Helper()
	sb, err := svc.Create(context.Background(), userID, models.CreateStoryboardRequest{
		InitialLine: "A lighthouse keeper finds a message in a bottle",
		Scenes: []models.SceneRequest{
			{SceneNumber: 2, Shots: []models.ShotRequest{{ShotNumber: 1, UserPrompt: "storm"}}},
			{SceneNumber: 1, Shots: []models.ShotRequest{
				{ShotNumber: 2, UserPrompt: "bottle on the rocks"},
				{ShotNumber: 1, UserPrompt: "lighthouse at dusk", StartImageURL: strp("https://img.example/a.png")},
			}},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return sb
}

func TestStoryboardCreate_SortsAndDefaults(t *testing.T) {
	svc, _ := newTestStoryboardService(nil)
	sb := seedStoryboard(t, svc, uuid.New())

	if sb.Status != models.StoryboardDraft {
		t.Fatalf("expected draft status, got %s", sb.Status)
	}
	if sb.Scenes[0].SceneNumber != 1 || sb.Scenes[1].SceneNumber != 2 {
		t.Fatalf("scenes not ordered by number")
	}
	if sb.Scenes[0].Shots[0].ShotNumber != 1 || sb.Scenes[0].Shots[0].Status != models.ShotPending {
		t.Fatalf("unexpected first shot %+v", sb.Scenes[0].Shots[0])
	}
}

func TestStoryboardCreate_NestedValidation(t *testing.T) {
	svc, store := newTestStoryboardService(nil)
	bad := "archived"

	_, err := svc.Create(context.Background(), uuid.New(), models.CreateStoryboardRequest{
		InitialLine: "  ",
		Status:      &bad,
		Scenes: []models.SceneRequest{
			{SceneNumber: 1, Shots: []models.ShotRequest{{ShotNumber: 1, UserPrompt: "ok"}, {ShotNumber: 0, UserPrompt: ""}}},
		},
	})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, f := range []string{"initial_line", "status", "scenes[0].shots[1].shot_number", "scenes[0].shots[1].user_prompt"} {
		if _, ok := ve.Fields[f]; !ok {
			t.Errorf("missing field error %q in %v", f, ve.Fields)
		}
	}
	if len(store.boards) != 0 {
		t.Fatalf("invalid request must not persist anything")
	}
}

func TestStoryboard_OwnershipIsNotFound(t *testing.T) {
	svc, _ := newTestStoryboardService(nil)
	owner, other := uuid.New(), uuid.New()
	sb := seedStoryboard(t, svc, owner)
	scene := sb.Scenes[0]
	shot := scene.Shots[0]

	var nf *NotFoundError
	if _, err := svc.Get(context.Background(), other, sb.ID); !errors.As(err, &nf) {
		t.Fatalf("Get by other user: expected NotFoundError, got %v", err)
	}
	if _, err := svc.GetScene(context.Background(), other, sb.ID, scene.ID); !errors.As(err, &nf) {
		t.Fatalf("GetScene by other user: expected NotFoundError, got %v", err)
	}
	if err := svc.DeleteShot(context.Background(), other, sb.ID, scene.ID, shot.ID); !errors.As(err, &nf) {
		t.Fatalf("DeleteShot by other user: expected NotFoundError, got %v", err)
	}

	// Scene from another storyboard of the same user.
	sb2 := seedStoryboard(t, svc, owner)
	if _, err := svc.GetScene(context.Background(), owner, sb2.ID, scene.ID); !errors.As(err, &nf) {
		t.Fatalf("cross-storyboard scene: expected NotFoundError, got %v", err)
	}
	// Shot under the wrong scene.
	if _, err := svc.GetShot(context.Background(), owner, sb.ID, sb.Scenes[1].ID, shot.ID); !errors.As(err, &nf) {
		t.Fatalf("cross-scene shot: expected NotFoundError, got %v", err)
	}
}

func TestStoryboardDelete_Cascades(t *testing.T) {
	svc, store := newTestStoryboardService(nil)
	owner := uuid.New()
	sb := seedStoryboard(t, svc, owner)

	if err := svc.Delete(context.Background(), owner, sb.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.scenes) != 0 || len(store.shots) != 0 {
		t.Fatalf("expected scenes and shots to be removed, got %d scenes %d shots", len(store.scenes), len(store.shots))
	}
}

func TestStoryboardUpdate_PartialFields(t *testing.T) {
	svc, _ := newTestStoryboardService(nil)
	owner := uuid.New()
	sb := seedStoryboard(t, svc, owner)

	status := models.StoryboardInProgress
	updated, err := svc.Update(context.Background(), owner, sb.ID, models.UpdateStoryboardRequest{Title: strp("The Keeper"), Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.InitialLine != sb.InitialLine {
		t.Fatalf("omitted field must keep its value")
	}
	if updated.Title == nil || *updated.Title != "The Keeper" || updated.Status != models.StoryboardInProgress {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if len(updated.Scenes) != 2 {
		t.Fatalf("expected hierarchy in update response")
	}
}

func TestStoryboardAddShot(t *testing.T) {
	svc, _ := newTestStoryboardService(nil)
	owner := uuid.New()
	sb := seedStoryboard(t, svc, owner)
	sceneID := sb.Scenes[1].ID

	shot, err := svc.AddShot(context.Background(), owner, sb.ID, sceneID, models.ShotRequest{ShotNumber: 2, UserPrompt: "waves crash"})
	if err != nil {
		t.Fatalf("AddShot: %v", err)
	}
	if shot.SceneID != sceneID || shot.Status != models.ShotPending {
		t.Fatalf("unexpected shot %+v", shot)
	}

	sc, err := svc.GetScene(context.Background(), owner, sb.ID, sceneID)
	if err != nil {
		t.Fatalf("GetScene: %v", err)
	}
	if len(sc.Shots) != 2 || sc.Shots[1].ID != shot.ID {
		t.Fatalf("expected new shot last in scene, got %d shots", len(sc.Shots))
	}
}

func TestGenerateShot_Completed(t *testing.T) {
	url := "https://cdn.example/shot.mp4"
	gen := &stubGenerator{gen: &models.Generation{ID: uuid.New(), Status: models.GenerationCompleted, GeneratedContentURL: &url}}
	svc, store := newTestStoryboardService(gen)
	owner := uuid.New()
	sb := seedStoryboard(t, svc, owner)
	scene := sb.Scenes[0]
	shot := scene.Shots[0]

	resp, err := svc.GenerateShot(context.Background(), owner, sb.ID, scene.ID, shot.ID, models.GenerateShotRequest{})
	if err != nil {
		t.Fatalf("GenerateShot: %v", err)
	}
	if resp.Shot.Status != models.ShotCompleted || resp.Shot.VideoURL == nil || *resp.Shot.VideoURL != url {
		t.Fatalf("unexpected shot %+v", resp.Shot)
	}
	if gen.got.GenerationType != models.ShotMediaType || gen.got.Prompt != shot.UserPrompt {
		t.Fatalf("unexpected generation request %+v", gen.got)
	}
	if gen.got.FirstFrame == nil || *gen.got.FirstFrame != "https://img.example/a.png" {
		t.Fatalf("expected start image as first frame")
	}
	if store.shots[shot.ID].Status != models.ShotCompleted {
		t.Fatalf("expected stored shot to be completed")
	}
}

func TestGenerateShot_FailureAndConflict(t *testing.T) {
	msg := "quota exceeded"
	gen := &stubGenerator{gen: &models.Generation{ID: uuid.New(), Status: models.GenerationFailed, ErrorMessage: &msg}}
	svc, store := newTestStoryboardService(gen)
	owner := uuid.New()
	sb := seedStoryboard(t, svc, owner)
	scene := sb.Scenes[0]
	shot := scene.Shots[0]

	resp, err := svc.GenerateShot(context.Background(), owner, sb.ID, scene.ID, shot.ID, models.GenerateShotRequest{})
	if err != nil {
		t.Fatalf("GenerateShot: %v", err)
	}
	if resp.Shot.Status != models.ShotFailed {
		t.Fatalf("expected failed shot, got %s", resp.Shot.Status)
	}

	store.shots[shot.ID].Status = models.ShotProcessing
	_, err = svc.GenerateShot(context.Background(), owner, sb.ID, scene.ID, shot.ID, models.GenerateShotRequest{})
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError for processing shot, got %v", err)
	}
}

func TestGenerateShot_ValidationRestoresStatus(t *testing.T) {
	gen := &stubGenerator{err: &ValidationError{Fields: map[string]string{"model": "unknown model"}}}
	svc, store := newTestStoryboardService(gen)
	owner := uuid.New()
	sb := seedStoryboard(t, svc, owner)
	scene := sb.Scenes[0]
	shot := scene.Shots[0]

	_, err := svc.GenerateShot(context.Background(), owner, sb.ID, scene.ID, shot.ID, models.GenerateShotRequest{Model: "nope"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if store.shots[shot.ID].Status != models.ShotPending {
		t.Fatalf("expected status restored to pending, got %s", store.shots[shot.ID].Status)
	}
}

func TestStoryboardCreate_ShotInsertFailurePersistsNothing(t *testing.T) {
	svc, store := newTestStoryboardService(nil)
	store.failShotInsert = 3
	owner := uuid.New()

	_, err := svc.Create(context.Background(), owner, models.CreateStoryboardRequest{
		InitialLine: "A lighthouse keeper finds a message in a bottle",
		Scenes: []models.SceneRequest{
			{SceneNumber: 1, Shots: []models.ShotRequest{{ShotNumber: 1, UserPrompt: "dusk"}, {ShotNumber: 2, UserPrompt: "bottle"}}},
			{SceneNumber: 2, Shots: []models.ShotRequest{{ShotNumber: 1, UserPrompt: "storm"}}},
		},
	})
	if err == nil {
		t.Fatalf("expected insert failure to surface")
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Fatalf("store failure must not be reported as validation, got %v", err)
	}
	if len(store.boards) != 0 || len(store.scenes) != 0 || len(store.shots) != 0 {
		t.Fatalf("expected nothing persisted, got %d boards %d scenes %d shots", len(store.boards), len(store.scenes), len(store.shots))
	}

	list, err := svc.List(context.Background(), owner, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 0 {
		t.Fatalf("expected no storyboards listed, got %d", list.Total)
	}
}

func TestStoryboardUpdateScene_PartialFields(t *testing.T) {
	svc, _ := newTestStoryboardService(nil)
	owner := uuid.New()
	sb := seedStoryboard(t, svc, owner)

	desc, dur := "the tide comes in", 7.5
	scene, err := svc.AddScene(context.Background(), owner, sb.ID, models.SceneRequest{SceneNumber: 3, Description: &desc, Duration: &dur})
	if err != nil {
		t.Fatalf("AddScene: %v", err)
	}

	updated, err := svc.UpdateScene(context.Background(), owner, sb.ID, scene.ID, models.UpdateSceneRequest{Description: strp("the tide goes out")})
	if err != nil {
		t.Fatalf("UpdateScene: %v", err)
	}
	if updated.Description == nil || *updated.Description != "the tide goes out" {
		t.Fatalf("description not updated: %+v", updated)
	}
	if updated.SceneNumber != 3 || updated.Duration == nil || *updated.Duration != 7.5 {
		t.Fatalf("omitted fields must keep their values, got number=%d duration=%v", updated.SceneNumber, updated.Duration)
	}

	stored, err := svc.GetScene(context.Background(), owner, sb.ID, scene.ID)
	if err != nil {
		t.Fatalf("GetScene: %v", err)
	}
	if stored.SceneNumber != 3 || stored.Duration == nil || *stored.Duration != 7.5 {
		t.Fatalf("stored scene lost omitted fields: %+v", stored)
	}
}

// staleShotStore reports every shot as pending, like a read taken just before
// a concurrent request claimed it.
type staleShotStore struct {
	*memStoryboardStore
}

func (s staleShotStore) GetShot(ctx context.Context, id uuid.UUID) (*models.Shot, error) {
	sh, err := s.memStoryboardStore.GetShot(ctx, id)
	if err != nil {
		return nil, err
	}
	sh.Status = models.ShotPending
	return sh, nil
}

func TestGenerateShot_ClaimDecidesConflict(t *testing.T) {
	gen := &stubGenerator{gen: &models.Generation{ID: uuid.New(), Status: models.GenerationCompleted}}
	mem := newMemStoryboardStore()
	seeder := NewStoryboardService(mem, gen, logging.Discard())
	owner := uuid.New()
	sb := seedStoryboard(t, seeder, owner)
	scene := sb.Scenes[0]
	shot := scene.Shots[0]
	mem.shots[shot.ID].Status = models.ShotProcessing

	svc := NewStoryboardService(staleShotStore{mem}, gen, logging.Discard())
	_, err := svc.GenerateShot(context.Background(), owner, sb.ID, scene.ID, shot.ID, models.GenerateShotRequest{})

	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not run for a shot already claimed, got %d calls", gen.calls)
	}
	if mem.shots[shot.ID].Status != models.ShotProcessing {
		t.Fatalf("losing request must not touch the shot, got %s", mem.shots[shot.ID].Status)
	}
}

func TestGenerateShot_SecondRequestDuringGenerationConflicts(t *testing.T) {
	url := "https://cdn.example/shot.mp4"
	gen := &stubGenerator{gen: &models.Generation{ID: uuid.New(), Status: models.GenerationCompleted, GeneratedContentURL: &url}}
	svc, store := newTestStoryboardService(gen)
	owner := uuid.New()
	sb := seedStoryboard(t, svc, owner)
	scene := sb.Scenes[0]
	shot := scene.Shots[0]

	var innerErr error
	gen.during = func() {
		gen.during = nil
		_, innerErr = svc.GenerateShot(context.Background(), owner, sb.ID, scene.ID, shot.ID, models.GenerateShotRequest{})
	}

	resp, err := svc.GenerateShot(context.Background(), owner, sb.ID, scene.ID, shot.ID, models.GenerateShotRequest{})
	if err != nil {
		t.Fatalf("GenerateShot: %v", err)
	}
	var ce *ConflictError
	if !errors.As(innerErr, &ce) {
		t.Fatalf("expected ConflictError for overlapping request, got %v", innerErr)
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one generation, got %d", gen.calls)
	}
	if resp.Shot.Status != models.ShotCompleted || store.shots[shot.ID].Status != models.ShotCompleted {
		t.Fatalf("expected completed shot, got %s", store.shots[shot.ID].Status)
	}
}
