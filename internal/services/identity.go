package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"videostack-backend/internal/models"
)

// IdentityProvider is the external login service users authenticate with.
type IdentityProvider interface {
	AuthURL(state string, signup bool) string
	Exchange(ctx context.Context, code string) (*models.Identity, error)
	LogoutURL() string
}

// OAuthIdentityProvider implements the authorization code flow against any
// OAuth2 provider. The profile comes from the userinfo endpoint, or from the
// "user" object in the token response when no endpoint is configured.
type OAuthIdentityProvider struct {
	config      *oauth2.Config
	userInfoURL string
	logoutURL   string
}

type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	LogoutURL    string
	RedirectURL  string
}

func NewOAuthIdentityProvider(s OAuthSettings) *OAuthIdentityProvider {
	return &OAuthIdentityProvider{
		config: &oauth2.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   s.AuthorizeURL,
				TokenURL:  s.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: s.RedirectURL,
			Scopes:      []string{"openid", "profile", "email"},
		},
		userInfoURL: s.UserInfoURL,
		logoutURL:   s.LogoutURL,
	}
}

func (p *OAuthIdentityProvider) AuthURL(state string, signup bool) string {
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("provider", "authkit")}
	if signup {
		opts = append(opts, oauth2.SetAuthURLParam("screen_hint", "sign-up"))
	}
	return p.config.AuthCodeURL(state, opts...)
}

func (p *OAuthIdentityProvider) Exchange(ctx context.Context, code string) (*models.Identity, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if p.userInfoURL == "" {
		raw, ok := tok.Extra("user").(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("token response has no user profile")
		}
		return identityFromMap(raw)
	}

	resp, err := p.config.Client(ctx, tok).Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, string(body))
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode user profile: %w", err)
	}
	return identityFromMap(raw)
}

// identityFromMap accepts both provider-native keys and OIDC standard claims.
func identityFromMap(raw map[string]interface{}) (*models.Identity, error) {
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := raw[k].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}

	id := &models.Identity{
		ExternalID: str("id", "sub"),
		Email:      str("email"),
		FirstName:  str("first_name", "given_name"),
		LastName:   str("last_name", "family_name"),
		PictureURL: str("profile_picture_url", "picture"),
	}
	id.EmailVerified, _ = raw["email_verified"].(bool)

	if id.ExternalID == "" {
		return nil, fmt.Errorf("user profile has no id")
	}
	return id, nil
}

func (p *OAuthIdentityProvider) LogoutURL() string {
	return p.logoutURL
}
