// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// =============================================================================
// FEEDBACK
// =============================================================================

// Feedback is the payload of /feedback.
type Feedback struct {
	UserQuery   string  `json:"user_query"`
	BotResponse string  `json:"bot_response"`
	Rating      int     `json:"rating"`
	Correction  *string `json:"correction"`
}

// SubmitFeedback records a rating. Callers are expected to log failures;
// feedback is never retried.
func (c *Client) SubmitFeedback(ctx context.Context, fb Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	return c.postJSON(ctx, c.config.Endpoints.Feedback, fb, nil)
}

// =============================================================================
// SHORTCUTS
// =============================================================================

// Shortcut is a saved message.
type Shortcut struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type shortcutList struct {
	Shortcuts *[]Shortcut `json:"shortcuts"`
}

// mutationResponse is the reply of add/delete.
type mutationResponse struct {
	Success bool   `json:"success"`
	ID      *int64 `json:"id"`
	Text    string `json:"text"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ListShortcuts returns the saved shortcuts in server order.
func (c *Client) ListShortcuts(ctx context.Context) ([]Shortcut, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var resp shortcutList
	if err := c.getJSON(ctx, c.config.Endpoints.ListShortcuts, &resp); err != nil {
		return nil, err
	}
	if resp.Shortcuts == nil {
		return nil, invalidResponse("get_shortcuts", errMissingField("shortcuts"))
	}
	return *resp.Shortcuts, nil
}

// AddShortcut saves text and returns the server-assigned shortcut.
func (c *Client) AddShortcut(ctx context.Context, text string) (Shortcut, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var resp mutationResponse
	if err := c.postJSON(ctx, c.config.Endpoints.AddShortcut, map[string]string{"text": text}, &resp); err != nil {
		return Shortcut{}, err
	}
	if !resp.Success {
		return Shortcut{}, rejected("add_shortcut", resp)
	}
	if resp.ID == nil {
		return Shortcut{}, invalidResponse("add_shortcut", errMissingField("id"))
	}
	saved := Shortcut{ID: *resp.ID, Text: resp.Text}
	if saved.Text == "" {
		saved.Text = text
	}
	return saved, nil
}

// DeleteShortcut removes a shortcut on the server. Any 2xx status is
// success; a JSON body is only consulted for an explicit rejection.
func (c *Client) DeleteShortcut(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := c.postStatus(ctx, c.config.Endpoints.DeleteShortcut, map[string]int64{"id": id})
	if err != nil {
		return err
	}
	var resp struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &resp) != nil {
		return nil
	}
	if resp.Success != nil && !*resp.Success {
		return rejected("delete_shortcut", mutationResponse{Error: resp.Error, Message: resp.Message})
	}
	return nil
}

func rejected(op string, resp mutationResponse) error {
	msg := resp.Error
	if msg == "" {
		msg = resp.Message
	}
	if msg == "" {
		msg = "request rejected"
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: op + ": " + msg}
}

// =============================================================================
// LOGIN
// =============================================================================

// ErrNoCredentials is returned by Login when no username is configured.
var ErrNoCredentials = errors.New("no credentials configured")

type loginResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RedirectURL string `json:"redirect_url"`
}

// Login authenticates with the configured credentials. The session cookie is
// kept by the client for later requests.
func (c *Client) Login(ctx context.Context) error {
	if c.config.Username == "" {
		return ErrNoCredentials
	}
	return c.LoginAs(ctx, c.config.Username, c.config.Password)
}

// LoginAs authenticates as the given user.
func (c *Client) LoginAs(ctx context.Context, username, password string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.config.Endpoints.Login), strings.NewReader(form.Encode()))
	if err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return invalidResponse("login", err)
	}
	if !lr.Success {
		msg := lr.Message
		if msg == "" {
			msg = "invalid credentials"
		}
		return &ClientError{Type: ErrTypeUnauthorized, Message: "login: " + msg}
	}
	c.log.Info().Str("user", username).Msg("logged in")
	return nil
}
