// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Endpoints holds the backend paths, relative to BaseURL.
type Endpoints struct {
	Ask            string
	AskStream      string
	Feedback       string
	ListShortcuts  string
	AddShortcut    string
	DeleteShortcut string
	Login          string
}

// DefaultEndpoints returns the paths served by the reference backend.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Ask:            "/ask",
		AskStream:      "/ask_stream",
		Feedback:       "/feedback",
		ListShortcuts:  "/get_shortcuts",
		AddShortcut:    "/add_shortcut",
		DeleteShortcut: "/delete_shortcut",
		Login:          "/login",
	}
}

// Config holds configuration options for the backend client.
type Config struct {
	// BaseURL is the backend root (default: http://127.0.0.1:5000)
	BaseURL string

	// Timeout for buffered requests (default: 60s)
	Timeout time.Duration

	// StreamTimeout bounds a whole streamed response; zero means no limit.
	StreamTimeout time.Duration

	// Endpoints overrides individual backend paths.
	Endpoints Endpoints

	// Username and Password are used by Login. Empty Username disables login.
	Username string
	Password string

	// Logger receives request logs. The zero value discards them.
	Logger zerolog.Logger

	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client

	// Now supplies the clock used for fallback timestamps.
	Now func() time.Time
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "http://127.0.0.1:5000",
		Timeout:       60 * time.Second,
		StreamTimeout: 5 * time.Minute,
		Endpoints:     DefaultEndpoints(),
		Logger:        zerolog.Nop(),
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend.
//
// The Client is safe for concurrent use. Session cookies set by Login are
// kept in an in-memory jar and sent with every later request.
type Client struct {
	config     *Config
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

// NewClient creates a backend client, filling zero values with defaults.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	config.Endpoints = mergeEndpoints(config.Endpoints, def.Endpoints)

	httpClient := config.HTTPClient
	if httpClient == nil {
		// cookiejar.New only fails for a broken public suffix list.
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{
			Jar: jar,
			// The backend answers unauthenticated calls with a redirect to
			// its login page; surface that instead of decoding HTML.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		log:        config.Logger.With().Str("component", "transport").Logger(),
		now:        now,
	}
}

func mergeEndpoints(e, def Endpoints) Endpoints {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Endpoints{
		Ask:            pick(e.Ask, def.Ask),
		AskStream:      pick(e.AskStream, def.AskStream),
		Feedback:       pick(e.Feedback, def.Feedback),
		ListShortcuts:  pick(e.ListShortcuts, def.ListShortcuts),
		AddShortcut:    pick(e.AddShortcut, def.AddShortcut),
		DeleteShortcut: pick(e.DeleteShortcut, def.DeleteShortcut),
		Login:          pick(e.Login, def.Login),
	}
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// BUFFERED ASK
// =============================================================================

// Reply is a complete assistant response.
type Reply struct {
	// Text is the response body, possibly containing inline markup tags.
	Text string

	// Timestamp is the display time, server supplied or the local clock.
	Timestamp string
}

// askRequest is the body of /ask and /ask_stream.
type askRequest struct {
	Message string `json:"message"`
}

// askResponse accepts both spellings of the response field.
type askResponse struct {
	Response  *string `json:"response"`
	Text      *string `json:"text"`
	Timestamp string  `json:"timestamp"`
}

// SendBuffered posts text to /ask and waits for the whole response.
func (c *Client) SendBuffered(ctx context.Context, text string) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var resp askResponse
	if err := c.postJSON(ctx, c.config.Endpoints.Ask, askRequest{Message: text}, &resp); err != nil {
		return nil, err
	}

	var body string
	switch {
	case resp.Response != nil:
		body = *resp.Response
	case resp.Text != nil:
		body = *resp.Text
	default:
		return nil, invalidResponse("ask", errMissingField("response"))
	}

	ts := resp.Timestamp
	if ts == "" {
		ts = c.now().Format("15:04")
	}
	return &Reply{Text: body, Timestamp: ts}, nil
}

// Timestamp formats the client clock the way replies are stamped.
func (c *Client) Timestamp() string {
	return c.now().Format("15:04")
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

type missingFieldError string

func (e missingFieldError) Error() string { return "missing field " + string(e) }

func errMissingField(name string) error { return missingFieldError(name) }

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.config.BaseURL + path
}

// newJSONRequest builds a request with a JSON body.
func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to encode request", Cause: err}
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), r)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and returns the response when its status is 2xx.
// On any other outcome the body is closed and a *ClientError is returned.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	op := strings.TrimPrefix(req.URL.Path, "/")
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("latency", time.Since(start)).
			Msg("request failed")
		return nil, classifyError(op, err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := resp.Header.Get("Location")
		if strings.Contains(loc, c.config.Endpoints.Login) {
			return nil, &ClientError{Type: ErrTypeUnauthorized, Message: op + ": login required", StatusCode: resp.StatusCode}
		}
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, statusError(op, resp.StatusCode, strings.TrimSpace(string(snippet)))
}

// postJSON posts body and decodes a JSON reply into out (which may be nil).
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

// postStatus posts body and returns the raw reply of a 2xx response.
func (c *Client) postStatus(ctx context.Context, path string, body any) ([]byte, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, classifyError(strings.TrimPrefix(req.URL.Path, "/"), ctxErr)
		}
		return nil, classifyError(strings.TrimPrefix(req.URL.Path, "/"), err)
	}
	return data, nil
}

// getJSON fetches path and decodes the JSON reply into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return classifyError(strings.TrimPrefix(req.URL.Path, "/"), ctxErr)
		}
		return invalidResponse(strings.TrimPrefix(req.URL.Path, "/"), err)
	}
	return nil
}
