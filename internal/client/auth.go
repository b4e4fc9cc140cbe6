package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// AuthResult mirrors the gateway's auth response body. A failed call
// comes back with Success=false and a human-readable message.
type AuthResult struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

// AuthClient drives the phone/code/2FA login flow over HTTP.
type AuthClient struct {
	http *resty.Client
}

func NewAuthClient(baseURL string) *AuthClient {
	cli := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30 * time.Second)
	return &AuthClient{http: cli}
}

func (a *AuthClient) RequestCode(ctx context.Context, phone string) (AuthResult, error) {
	return a.post(ctx, "/auth/request-code", map[string]string{"phone": phone})
}

func (a *AuthClient) VerifyCode(ctx context.Context, phone, code string) (AuthResult, error) {
	return a.post(ctx, "/auth/verify-code", map[string]string{"phone": phone, "code": code})
}

func (a *AuthClient) VerifyPassword(ctx context.Context, phone, password string) (AuthResult, error) {
	return a.post(ctx, "/auth/verify-password", map[string]string{"phone": phone, "password": password})
}

func (a *AuthClient) post(ctx context.Context, path string, body map[string]string) (AuthResult, error) {
	var out AuthResult
	// The gateway reports failures as a 500 carrying the same body
	// shape, so success and error decode into the same struct.
	_, err := a.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(path)
	if err != nil {
		return AuthResult{}, fmt.Errorf("post %s: %w", path, err)
	}
	return out, nil
}
