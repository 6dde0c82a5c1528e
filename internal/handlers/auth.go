package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"videostack-backend/internal/middleware"
	"videostack-backend/internal/models"
)

type authService interface {
	AuthorizationURL(state string, signup bool) string
	CompleteLogin(ctx context.Context, code string) (*models.AuthTokens, *models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) (*models.LogoutResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetUser(ctx context.Context, requester, target uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error)
}

type AuthHandler struct {
	authService authService
	frontendURL string
}

func NewAuthHandler(authService authService, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, frontendURL: frontendURL}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.LoginResponse{
		AuthURL: h.authService.AuthorizationURL(r.URL.Query().Get("state"), false),
	})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.LoginResponse{
		AuthURL: h.authService.AuthorizationURL(r.URL.Query().Get("state"), true),
	})
}

// Callback finishes the identity provider redirect and hands the tokens to the frontend.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Authorization code is required", r))
		return
	}

	tokens, user, err := h.authService.CompleteLogin(r.Context(), code)
	if err != nil {
		q := url.Values{"message": {err.Error()}}
		http.Redirect(w, r, h.frontendURL+"/auth/error?"+q.Encode(), http.StatusFound)
		return
	}

	q := url.Values{
		"access_token":  {tokens.AccessToken},
		"refresh_token": {tokens.RefreshToken},
		"user_id":       {user.ID.String()},
	}
	http.Redirect(w, r, h.frontendURL+"/auth/success?"+q.Encode(), http.StatusFound)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Logout(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetProfile(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Session reports whether the caller holds a valid access token. It never fails.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		writeJSON(w, http.StatusOK, models.SessionInfo{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, models.SessionInfo{
		UserID:        userID.String(),
		Email:         middleware.GetEmail(r.Context()),
		Authenticated: true,
	})
}

func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	target, ok := uuidParam(w, r, "user_id", "user")
	if !ok {
		return
	}

	user, err := h.authService.GetUser(r.Context(), middleware.GetUserID(r.Context()), target)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
