// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jarvis-tui/internal/transport"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestServer(t *testing.T, responder Responder) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(Options{
		Username:   "ana",
		Password:   "segredo",
		Responder:  responder,
		ChunkDelay: 5 * time.Millisecond,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func newClient(ts *httptest.Server, user, pass string) *transport.Client {
	cfg := transport.DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.Username = user
	cfg.Password = pass
	return transport.NewClient(cfg)
}

func loggedIn(t *testing.T, ts *httptest.Server) *transport.Client {
	t.Helper()
	c := newClient(ts, "ana", "segredo")
	require.NoError(t, c.Login(context.Background()))
	return c
}

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestLogin_RejectsBadPassword(t *testing.T) {
	_, ts := newTestServer(t, nil)
	c := newClient(ts, "ana", "errada")

	err := c.Login(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), badLoginText)
}

func TestUnauthenticated_RedirectsToLogin(t *testing.T) {
	_, ts := newTestServer(t, nil)

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := noRedirect.Get(ts.URL + "/get_shortcuts")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	c := newClient(ts, "", "")
	_, err = c.ListShortcuts(context.Background())
	require.True(t, transport.IsType(err, transport.ErrTypeUnauthorized), "got %v", err)
}

func TestLogin_FormPostRedirects(t *testing.T) {
	_, ts := newTestServer(t, nil)

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := noRedirect.PostForm(ts.URL+"/login", url.Values{"username": {"ana"}, "password": {"segredo"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	var found bool
	for _, c := range resp.Cookies() {
		found = found || c.Name == SessionCookie
	}
	require.True(t, found, "session cookie not set")
}

// =============================================================================
// ASK TESTS
// =============================================================================

func TestAsk_BufferedAndStreamedAgree(t *testing.T) {
	reply := "Olá! 日本語 e emoji 🎉 com <b>negrito</b>."
	_, ts := newTestServer(t, ResponderFunc(func(context.Context, User, string) (string, error) {
		return reply, nil
	}))
	c := loggedIn(t, ts)
	ctx := context.Background()

	buffered, err := c.SendBuffered(ctx, "oi")
	require.NoError(t, err)
	require.Equal(t, reply, buffered.Text)
	require.Equal(t, "10:00", buffered.Timestamp)

	var fragments []string
	streamed, err := c.SendStreamed(ctx, "oi", func(f string) { fragments = append(fragments, f) })
	require.NoError(t, err)
	require.Equal(t, buffered.Text, streamed)
	require.Greater(t, len(fragments), 1, "reply should arrive in several chunks")
	require.Equal(t, reply, strings.Join(fragments, ""))
}

func TestAsk_DefaultResponderUsesKnowledge(t *testing.T) {
	s, ts := newTestServer(t, nil)
	require.NoError(t, s.Store().PutKnowledge(context.Background(), "horário", "Funcionamos das <b>8h</b> às 18h."))
	c := loggedIn(t, ts)

	r, err := c.SendBuffered(context.Background(), "Qual é o HORÁRIO de vocês?")
	require.NoError(t, err)
	require.Equal(t, "Funcionamos das <b>8h</b> às 18h.", r.Text)

	r, err = c.SendBuffered(context.Background(), "<script>")
	require.NoError(t, err)
	require.Contains(t, r.Text, "&lt;script&gt;")
}

func TestAsk_ResponderFailure(t *testing.T) {
	_, ts := newTestServer(t, ResponderFunc(func(context.Context, User, string) (string, error) {
		return "", errors.New("model offline")
	}))
	c := loggedIn(t, ts)

	_, err := c.SendBuffered(context.Background(), "oi")
	require.True(t, transport.IsType(err, transport.ErrTypeStatus), "got %v", err)
}

// =============================================================================
// SHORTCUT AND FEEDBACK TESTS
// =============================================================================

func TestShortcuts_CRUD(t *testing.T) {
	_, ts := newTestServer(t, nil)
	c := loggedIn(t, ts)
	ctx := context.Background()

	list, err := c.ListShortcuts(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	first, err := c.AddShortcut(ctx, "resumo do dia")
	require.NoError(t, err)
	second, err := c.AddShortcut(ctx, "agenda")
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)

	list, err = c.ListShortcuts(ctx)
	require.NoError(t, err)
	require.Equal(t, []transport.Shortcut{second, first}, list, "newest first")

	require.NoError(t, c.DeleteShortcut(ctx, first.ID))
	err = c.DeleteShortcut(ctx, first.ID)
	require.True(t, transport.IsType(err, transport.ErrTypeStatus), "got %v", err)

	_, err = c.AddShortcut(ctx, "")
	require.Error(t, err)
}

func TestFeedback_Stored(t *testing.T) {
	s, ts := newTestServer(t, nil)
	c := loggedIn(t, ts)
	ctx := context.Background()

	correction := "deveria ser mais breve"
	require.NoError(t, c.SubmitFeedback(ctx, transport.Feedback{UserQuery: "oi", BotResponse: "Olá!", Rating: 1}))
	require.NoError(t, c.SubmitFeedback(ctx, transport.Feedback{
		UserQuery: "oi", BotResponse: "Olá!", Rating: -1, Correction: &correction,
	}))

	rows, err := s.Store().Feedback(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Nil(t, rows[0].Correction)
	require.Equal(t, -1, rows[1].Rating)
	require.Equal(t, correction, *rows[1].Correction)
}

func TestFeedback_MissingFields(t *testing.T) {
	_, ts := newTestServer(t, nil)
	c := loggedIn(t, ts)

	err := c.SubmitFeedback(context.Background(), transport.Feedback{UserQuery: "oi", Rating: 1})
	require.True(t, transport.IsType(err, transport.ErrTypeStatus), "got %v", err)
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour, 2)
	require.True(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.2"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingMiddleware_KeepsFlusher(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	h := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := w.(http.Flusher)
		require.True(t, ok)
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "/x", line["path"])
	require.EqualValues(t, http.StatusTeapot, line["status"])
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}
