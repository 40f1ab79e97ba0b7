package api

import (
	"context"
	"net/http"
	"time"
)

// User is the authenticated dashboard account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenPair is the credential triple returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// AccessTokenTTL returns the server-provided access token lifetime.
func (t TokenPair) AccessTokenTTL() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

// LoginResponse is returned by the login endpoint.
type LoginResponse struct {
	TokenPair
	User User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for a token pair. No auth header is sent.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/login/", loginRequest{Email: email, Password: password}, &resp, true)
	return resp, err
}

// RefreshToken exchanges a refresh token for a new token pair. The access
// token is deliberately not attached: this call succeeds on the strength
// of the refresh token alone. A 401/403 response surfaces as *AuthError,
// which the session manager treats as terminal.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	var resp TokenPair
	err := c.doJSON(ctx, http.MethodPost, "/api/refresh-token/", refreshRequest{RefreshToken: refreshToken}, &resp, true)
	return resp, err
}
