// Package client is the Go counterpart of the site's browser auth context:
// a typed API client, a token store and a Session that tracks the signed-in
// user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yangjihun/FM-COMMIT/internal/models"
)

// APIError is a non-2xx response decoded from the {status, error} envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *APIError
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// API talks to the server's /api routes.
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI returns a client for baseURL, e.g. "http://localhost:8080/api".
// hc may be nil.
func NewAPI(baseURL string, hc *http.Client) *API {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// LoginResult is the body of both sign-in endpoints.
type LoginResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type envelope struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (a *API) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// GoogleLogin exchanges a Google ID token for a session.
func (a *API) GoogleLogin(ctx context.Context, credential string) (*LoginResult, error) {
	var out LoginResult
	if err := a.do(ctx, http.MethodPost, "/auth/google", "", map[string]string{"token": credential}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PasswordLogin signs in with email and password.
func (a *API) PasswordLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	in := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes token on the server.
func (a *API) Logout(ctx context.Context, token string) error {
	return a.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// Me returns the user the token belongs to.
func (a *API) Me(ctx context.Context, token string) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := a.do(ctx, http.MethodGet, "/user/me", token, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("api: /user/me returned no user")
	}
	return out.User, nil
}
