package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"videostack-backend/internal/middleware"
	"videostack-backend/internal/models"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type AuthService struct {
	users    UserStore
	refresh  RefreshStore
	jwt      *middleware.JWTAuth
	identity IdentityProvider
}

func NewAuthService(users UserStore, refresh RefreshStore, jwt *middleware.JWTAuth, identity IdentityProvider) *AuthService {
	return &AuthService{
		users:    users,
		refresh:  refresh,
		jwt:      jwt,
		identity: identity,
	}
}

func (s *AuthService) AuthorizationURL(state string, signup bool) string {
	return s.identity.AuthURL(state, signup)
}

// CompleteLogin exchanges the authorization code, links the identity to a
// local user, and issues our own tokens.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*models.AuthTokens, *models.User, error) {
	if code == "" {
		return nil, nil, &ValidationError{Fields: map[string]string{"code": "Authorization code is required"}}
	}

	ident, err := s.identity.Exchange(ctx, code)
	if err != nil {
		return nil, nil, &UnauthorizedError{Message: "Authentication failed"}
	}

	user, err := s.getOrCreateUser(ctx, ident)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, user, nil
}

func (s *AuthService) getOrCreateUser(ctx context.Context, ident *models.Identity) (*models.User, error) {
	user, err := s.users.GetByExternalID(ctx, ident.ExternalID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	fullName := ident.FullName()

	if user == nil {
		user = &models.User{
			ExternalID: strPtr(ident.ExternalID),
			Email:      optionalStr(ident.Email),
			Name:       optionalStr(fullName),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return user, nil
	}

	updated := false
	if ident.Email != "" && derefStr(user.Email) != ident.Email {
		user.Email = strPtr(ident.Email)
		updated = true
	}
	if fullName != "" && derefStr(user.Name) != fullName {
		user.Name = strPtr(fullName)
		updated = true
	}
	if updated {
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return user, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if refreshToken == "" {
		return nil, &ValidationError{Fields: map[string]string{"refresh_token": "Refresh token is required"}}
	}

	userID, err := s.refresh.Take(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Account no longer exists"}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) (*models.LogoutResponse, error) {
	if refreshToken == "" {
		return nil, &ValidationError{Fields: map[string]string{"refresh_token": "Refresh token is required"}}
	}
	if err := s.refresh.Delete(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return &models.LogoutResponse{
		LogoutURL: s.identity.LogoutURL(),
		Message:   "Logout successful",
	}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, err
	}
	return user, nil
}

// GetUser returns another profile by id. Users may only read their own.
func (s *AuthService) GetUser(ctx context.Context, requester, target uuid.UUID) (*models.User, error) {
	if requester != target {
		return nil, &ForbiddenError{Message: "Not authorized to access this user profile"}
	}
	return s.GetProfile(ctx, target)
}

// UpdateProfile changes the display name. Omitted name parts keep their current value.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName == nil && req.LastName == nil {
		return user, nil
	}

	first, last := splitName(derefStr(user.Name))
	if req.FirstName != nil {
		first = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		last = strings.TrimSpace(*req.LastName)
	}

	fields := map[string]string{}
	if len(first) > 100 {
		fields["first_name"] = "First name must be at most 100 characters"
	}
	if len(last) > 100 {
		fields["last_name"] = "Last name must be at most 100 characters"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	user.Name = optionalStr(models.Identity{FirstName: first, LastName: last}.FullName())
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, derefStr(user.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(32)
	if err != nil {
		return nil, err
	}

	if err := s.refresh.Save(ctx, refreshToken, user.ID, RefreshTokenTTL); err != nil {
		return nil, err
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(middleware.AccessTokenTTL.Seconds()),
	}, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// splitName reverses Identity.FullName for names stored as one string.
func splitName(full string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(full), " ")
	return first, strings.TrimSpace(last)
}

func strPtr(s string) *string { return &s }

func optionalStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
