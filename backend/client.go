// Package backend implements the credential exchange client: the single
// HTTP call that converts a strategy-specific credential into a session.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marshub/authgate/flow"
	"github.com/marshub/authgate/session"
)

const (
	PasswordLoginPath = "/api/v1/auth/login"
	TelegramLoginPath = "/api/v1/auth/telegram-login"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ flow.Exchanger = (*Client)(nil)

func (c *Client) PasswordLogin(ctx context.Context, email, password string) (*session.Session, error) {
	return c.exchange(ctx, PasswordLoginPath, map[string]string{
		"email":    email,
		"password": password,
	})
}

// CredentialLogin forwards a third-party credential payload verbatim. The
// exchange path depends on which strategy produced the credential.
func (c *Client) CredentialLogin(ctx context.Context, path string, cred flow.Credential) (*session.Session, error) {
	if path == "" {
		path = TelegramLoginPath
	}
	return c.exchange(ctx, path, map[string]any{"telegramData": cred})
}

// exchange performs exactly one POST. A transport failure surfaces as a
// NetworkError; any non-2xx response surfaces as a BackendError carrying
// the backend-provided message regardless of body shape.
func (c *Client) exchange(ctx context.Context, path string, body any) (*session.Session, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &flow.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return nil, &flow.BackendError{StatusCode: resp.StatusCode, Message: failure.Message}
	}

	var s session.Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, &flow.NetworkError{Err: err}
	}
	return &s, nil
}
