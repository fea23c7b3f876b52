package api

import (
	"context"
	"fmt"
	"net/http"

	"healthdesk/internal/model"
)

// Auth wraps the /auth endpoints. Their responses are not enveloped.
type Auth struct {
	client *Client
}

// NewAuth binds the auth endpoints to c.
func NewAuth(c *Client) *Auth {
	return &Auth{client: c}
}

// Login exchanges credentials for a token. It never sends a stored token
// and is never retried.
func (a *Auth) Login(ctx context.Context, creds model.LoginRequest) (model.LoginResponse, error) {
	var resp model.LoginResponse
	err := a.client.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      creds,
		anonymous: true,
		raw:       true,
	}, &resp)
	if err != nil {
		return model.LoginResponse{}, err
	}
	if resp.AccessToken == "" {
		return model.LoginResponse{}, &Error{Status: http.StatusOK, Message: resp.Message}
	}
	return resp, nil
}

// Refresh trades a refresh token for a new access token.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (model.LoginResponse, error) {
	var resp model.LoginResponse
	err := a.client.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/refresh",
		body:      map[string]string{"refresh_token": refreshToken},
		anonymous: true,
		raw:       true,
	}, &resp)
	if err != nil {
		return model.LoginResponse{}, fmt.Errorf("failed to refresh token: %w", err)
	}
	return resp, nil
}

// Me returns the profile the current token belongs to.
func (a *Auth) Me(ctx context.Context) (model.User, error) {
	var resp struct {
		User model.User `json:"user"`
	}
	if err := a.client.do(ctx, request{method: http.MethodGet, path: "/auth/me", raw: true}, &resp); err != nil {
		return model.User{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return resp.User, nil
}
