package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"videostack-backend/internal/middleware"
	"videostack-backend/internal/models"
)

type memUserStore struct {
	users map[uuid.UUID]*models.User
}

func (m *memUserStore) Create(_ context.Context, u *models.User) error {
	u.ID = uuid.New()
	m.users[u.ID] = u
	return nil
}

func (m *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memUserStore) GetByExternalID(_ context.Context, externalID string) (*models.User, error) {
	for _, u := range m.users {
		if derefStr(u.ExternalID) == externalID {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUserStore) Update(_ context.Context, u *models.User) error {
	m.users[u.ID] = u
	return nil
}

type memRefreshStore struct {
	tokens map[string]uuid.UUID
}

func (m *memRefreshStore) Save(_ context.Context, token string, userID uuid.UUID, _ time.Duration) error {
	m.tokens[token] = userID
	return nil
}

func (m *memRefreshStore) Take(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := m.tokens[token]
	if !ok {
		return uuid.Nil, ErrRefreshTokenNotFound
	}
	delete(m.tokens, token)
	return id, nil
}

func (m *memRefreshStore) Delete(_ context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

type stubIdentity struct {
	ident *models.Identity
	err   error
}

func (s *stubIdentity) AuthURL(state string, signup bool) string {
	if signup {
		return "https://idp.example/authorize?screen_hint=sign-up&state=" + state
	}
	return "https://idp.example/authorize?state=" + state
}

func (s *stubIdentity) Exchange(context.Context, string) (*models.Identity, error) {
	return s.ident, s.err
}

func (s *stubIdentity) LogoutURL() string { return "https://idp.example/logout" }

func newTestAuthService(ident *stubIdentity) (*AuthService, *memUserStore, *memRefreshStore, *middleware.JWTAuth) {
	users := &memUserStore{users: map[uuid.UUID]*models.User{}}
	refresh := &memRefreshStore{tokens: map[string]uuid.UUID{}}
	jwt := middleware.NewJWTAuth("test-secret")
	return NewAuthService(users, refresh, jwt, ident), users, refresh, jwt
}

func TestCompleteLogin_CreatesThenUpdatesUser(t *testing.T) {
	ident := &stubIdentity{ident: &models.Identity{ExternalID: "user_01", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}}
	svc, users, _, jwt := newTestAuthService(ident)

	tokens, user, err := svc.CompleteLogin(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}
	if derefStr(user.Name) != "Ada Lovelace" || derefStr(user.Email) != "ada@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if tokens.ExpiresIn != 900 || tokens.RefreshToken == "" {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
	id, email, err := jwt.ParseAccessToken(tokens.AccessToken)
	if err != nil || id != user.ID || email != "ada@example.com" {
		t.Fatalf("access token does not carry the user: %v %v %v", id, email, err)
	}

	ident.ident = &models.Identity{ExternalID: "user_01", Email: "ada@new.example", FirstName: "Ada"}
	_, again, err := svc.CompleteLogin(context.Background(), "code-2")
	if err != nil {
		t.Fatalf("second CompleteLogin: %v", err)
	}
	if again.ID != user.ID || len(users.users) != 1 {
		t.Fatalf("expected the existing user to be reused")
	}
	if derefStr(again.Email) != "ada@new.example" || derefStr(again.Name) != "Ada" {
		t.Fatalf("expected profile refresh from identity, got %+v", again)
	}
}

func TestCompleteLogin_Errors(t *testing.T) {
	svc, _, _, _ := newTestAuthService(&stubIdentity{err: errors.New("invalid_grant")})

	var ve *ValidationError
	if _, _, err := svc.CompleteLogin(context.Background(), ""); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for empty code, got %v", err)
	}
	var ue *UnauthorizedError
	if _, _, err := svc.CompleteLogin(context.Background(), "bad"); !errors.As(err, &ue) {
		t.Fatalf("expected UnauthorizedError for failed exchange, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _, refresh, _ := newTestAuthService(&stubIdentity{ident: &models.Identity{ExternalID: "u"}})
	first, _, err := svc.CompleteLogin(context.Background(), "code")
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if _, ok := refresh.tokens[first.RefreshToken]; ok {
		t.Fatalf("old refresh token must be consumed")
	}

	var ue *UnauthorizedError
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.As(err, &ue) {
		t.Fatalf("reusing a refresh token: expected UnauthorizedError, got %v", err)
	}
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	svc, _, refresh, _ := newTestAuthService(&stubIdentity{ident: &models.Identity{ExternalID: "u"}})
	tokens, _, err := svc.CompleteLogin(context.Background(), "code")
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}

	resp, err := svc.Logout(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if resp.LogoutURL != "https://idp.example/logout" {
		t.Fatalf("unexpected logout url %q", resp.LogoutURL)
	}
	if len(refresh.tokens) != 0 {
		t.Fatalf("expected refresh token to be revoked")
	}
}

func TestGetUser_OtherUserForbidden(t *testing.T) {
	svc, _, _, _ := newTestAuthService(&stubIdentity{})
	var fe *ForbiddenError
	if _, err := svc.GetUser(context.Background(), uuid.New(), uuid.New()); !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _, _ := newTestAuthService(&stubIdentity{ident: &models.Identity{ExternalID: "u", FirstName: "Grace", LastName: "Hopper"}})
	_, user, err := svc.CompleteLogin(context.Background(), "code")
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}

	last := "Murray Hopper"
	updated, err := svc.UpdateProfile(context.Background(), user.ID, models.UpdateProfileRequest{LastName: &last})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if derefStr(updated.Name) != "Grace Murray Hopper" {
		t.Fatalf("unexpected name %q", derefStr(updated.Name))
	}
}
