package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID `json:"id"`
	ExternalID *string   `json:"external_id"`
	Name       *string   `json:"name"`
	Email      *string   `json:"email"`
	CreatedAt  time.Time `json:"creation_date"`
	UpdatedAt  time.Time `json:"updated_date"`
}

// Identity is the profile returned by the external identity provider.
type Identity struct {
	ExternalID    string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
	PictureURL    string `json:"profile_picture_url"`
}

// FullName joins first and last name, returning "" when both are empty.
func (i Identity) FullName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	default:
		return i.LastName
	}
}

type LoginResponse struct {
	AuthURL string `json:"auth_url"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct {
	LogoutURL string `json:"logout_url,omitempty"`
	Message   string `json:"message"`
}

type SessionInfo struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Authenticated bool   `json:"authenticated"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}
