// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/render"
	"github.com/jeranaias/jarvis-tui/internal/server"
	"github.com/jeranaias/jarvis-tui/internal/session"
	"github.com/jeranaias/jarvis-tui/internal/timeline"
	"github.com/jeranaias/jarvis-tui/internal/transport"
)

// =============================================================================
// HELPERS
// =============================================================================

const testReply = "Olá, <b>ana</b>!"

type harness struct {
	srv    *server.Server
	client *transport.Client
	sess   *session.Session
	out    *bytes.Buffer
	con    *console
}

func newHarness(t *testing.T, responder server.Responder) *harness {
	t.Helper()
	if responder == nil {
		responder = server.ResponderFunc(func(context.Context, server.User, string) (string, error) {
			return testReply, nil
		})
	}
	srv, err := server.New(server.Options{
		Username:  "ana",
		Password:  "segredo",
		Responder: responder,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())

	cfg := transport.DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.Username = "ana"
	cfg.Password = "segredo"
	client := transport.NewClient(cfg)

	opts := session.DefaultOptions()
	opts.Interval = time.Millisecond
	opts.EventBuffer = 4096
	sess := session.New(client, opts)

	t.Cleanup(func() {
		sess.Close()
		ts.Close()
		srv.Close()
	})
	require.NoError(t, sess.Open(context.Background()))

	out := &bytes.Buffer{}
	return &harness{
		srv:    srv,
		client: client,
		sess:   sess,
		out:    out,
		con:    newConsole(sess, out, render.DefaultStyler()),
	}
}

// line runs one input line and returns what it printed.
func (h *harness) line(t *testing.T, text string) string {
	t.Helper()
	h.out.Reset()
	require.NoError(t, h.con.handleLine(context.Background(), text))
	return h.out.String()
}

type scriptedReader struct {
	lines   []string
	prompts []string
	texts   []string
}

func (r *scriptedReader) ReadInput(prompt, text string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	r.texts = append(r.texts, text)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	l := r.lines[0]
	r.lines = r.lines[1:]
	return l, nil
}

// =============================================================================
// SENDING TESTS
// =============================================================================

func TestConsole_SendPrintsStyledReply(t *testing.T) {
	h := newHarness(t, nil)

	out := h.line(t, "oi")
	require.Contains(t, out, "jarvis")
	require.Contains(t, out, "Olá, ")
	require.Contains(t, out, "ana")
	require.NotContains(t, out, "<b>")

	ex, ok := h.sess.Timeline().Last()
	require.True(t, ok)
	require.Equal(t, timeline.StateComplete, ex.State)
	require.Equal(t, testReply, ex.ResponseText)
	require.False(t, h.sess.Busy())
}

func TestConsole_SendStreaming(t *testing.T) {
	h := newHarness(t, nil)

	out := h.line(t, "/stream")
	require.Contains(t, out, "streaming ativadas")
	require.True(t, h.sess.Streaming())

	out = h.line(t, "oi")
	require.Contains(t, out, "ana")

	ex, ok := h.sess.Timeline().Last()
	require.True(t, ok)
	require.True(t, ex.Streamed)
	require.Equal(t, testReply, ex.ResponseText)

	out = h.line(t, "/stream")
	require.Contains(t, out, "completas")
	require.False(t, h.sess.Streaming())
}

func TestConsole_ConsecutiveSends(t *testing.T) {
	h := newHarness(t, nil)

	h.line(t, "primeira")
	h.line(t, "segunda")
	require.Equal(t, 2, h.sess.Timeline().Len())
	for _, ex := range h.sess.Timeline().Entries() {
		require.Equal(t, timeline.StateComplete, ex.State)
		require.False(t, ex.Interrupted)
	}
}

func TestAsk_FailedReplyShowsFallback(t *testing.T) {
	h := newHarness(t, server.ResponderFunc(func(context.Context, server.User, string) (string, error) {
		return "", errors.New("model offline")
	}))

	var out bytes.Buffer
	ex, err := ask(context.Background(), h.sess, &out, "oi")
	require.NoError(t, err)
	require.Equal(t, timeline.StateFailed, ex.State)
	require.Equal(t, config.DefaultFallbackMessage, ex.ResponseText)
	require.Contains(t, out.String(), config.DefaultFallbackMessage)

	// Failed replies cannot be rated.
	_, attached := h.sess.Feedback().State(ex.ID)
	require.False(t, attached)
}

func TestConsole_SendCanceled(t *testing.T) {
	h := newHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.con.send(ctx, "oi")
	require.Error(t, err)
}

// =============================================================================
// FEEDBACK TESTS
// =============================================================================

func TestConsole_Like(t *testing.T) {
	h := newHarness(t, nil)
	h.line(t, "oi")

	out := h.line(t, "/like")
	require.Contains(t, out, "Obrigado pelo feedback!")

	rows, err := h.srv.Store().Feedback(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].Rating)
	require.Equal(t, "oi", rows[0].UserQuery)
	require.Nil(t, rows[0].Correction)

	out = h.line(t, "/dislike")
	require.Contains(t, out, "já foi avaliada")
	rows, err = h.srv.Store().Feedback(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestConsole_DislikeWithCorrection(t *testing.T) {
	h := newHarness(t, nil)
	h.line(t, "oi")

	h.line(t, "/dislike mais curto, por favor")

	rows, err := h.srv.Store().Feedback(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, -1, rows[0].Rating)
	require.NotNil(t, rows[0].Correction)
	require.Equal(t, "mais curto, por favor", *rows[0].Correction)
}

func TestConsole_DislikeWithoutCorrection(t *testing.T) {
	h := newHarness(t, nil)
	h.line(t, "oi")

	h.line(t, "/dislike")

	rows, err := h.srv.Store().Feedback(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, -1, rows[0].Rating)
	require.Nil(t, rows[0].Correction)
}

func TestConsole_RateWithoutMessages(t *testing.T) {
	h := newHarness(t, nil)

	require.Contains(t, h.line(t, "/like"), "Nenhuma mensagem ainda.")
	require.Contains(t, h.line(t, "/save"), "Nenhuma mensagem ainda.")
}

// =============================================================================
// SHORTCUT TESTS
// =============================================================================

func TestConsole_ShortcutLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.Contains(t, h.line(t, "/shortcuts"), "Nenhum atalho salvo.")

	h.line(t, "Resumo do dia")
	require.Contains(t, h.line(t, "/save"), "Atalho salvo!")

	list, err := h.client.ListShortcuts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Resumo do dia", list[0].Text)

	out := h.line(t, "/shortcuts")
	require.Contains(t, out, " 1.")
	require.Contains(t, out, "Resumo do dia")

	// Saving the same message twice is refused.
	require.Contains(t, h.line(t, "/save"), "já é um atalho")

	h.line(t, "/use 1")
	require.Equal(t, "Resumo do dia", h.con.takePending())
	require.Empty(t, h.con.takePending())

	require.Contains(t, h.line(t, "/rm 1"), "Atalho removido.")
	require.Empty(t, h.sess.Shortcuts().Items())
	require.Eventually(t, func() bool {
		list, err := h.client.ListShortcuts(ctx)
		return err == nil && len(list) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsole_ShortcutIndexErrors(t *testing.T) {
	h := newHarness(t, nil)

	require.Contains(t, h.line(t, "/use"), "Informe o número")
	require.Contains(t, h.line(t, "/use abc"), "Informe o número")
	require.Contains(t, h.line(t, "/rm 4"), "Não há atalho 4.")
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestConsole_Clear(t *testing.T) {
	h := newHarness(t, nil)
	h.line(t, "oi")
	require.Equal(t, 1, h.sess.Timeline().Len())

	require.Contains(t, h.line(t, "/clear"), "[Nova conversa]")
	require.Equal(t, 0, h.sess.Timeline().Len())
}

func TestConsole_MiscCommands(t *testing.T) {
	h := newHarness(t, nil)

	require.Contains(t, h.line(t, "/help"), "/dislike")
	require.Contains(t, h.line(t, "/foo"), "Comando desconhecido: /foo")
	require.Empty(t, h.line(t, "   "))

	err := h.con.handleLine(context.Background(), "/quit")
	require.ErrorIs(t, err, errQuit)
}

func TestConsole_Welcome(t *testing.T) {
	h := newHarness(t, nil)
	h.out.Reset()
	h.con.printWelcome("ana")
	require.Contains(t, h.out.String(), "Olá, ana!")
	require.Contains(t, h.out.String(), "respostas completas")
}

// =============================================================================
// CHAT LOOP TESTS
// =============================================================================

func TestChatLoop_EndsOnEOF(t *testing.T) {
	h := newHarness(t, nil)
	in := &scriptedReader{lines: []string{"oi"}}

	require.NoError(t, chatLoop(context.Background(), h.con, in))
	require.Equal(t, 1, h.sess.Timeline().Len())
	require.Len(t, in.prompts, 2)
}

func TestChatLoop_QuitAndPrefill(t *testing.T) {
	h := newHarness(t, nil)
	in := &scriptedReader{lines: []string{"Resumo", "/save", "/use 1", "/quit", "never read"}}

	require.NoError(t, chatLoop(context.Background(), h.con, in))
	require.Equal(t, []string{"never read"}, in.lines)
	// The line after /use starts with the shortcut text.
	require.Equal(t, "Resumo", in.texts[3])
}

func TestChatLoop_ReaderError(t *testing.T) {
	h := newHarness(t, nil)
	boom := errors.New("terminal gone")
	in := readerFunc(func(string, string) (string, error) { return "", boom })

	require.ErrorIs(t, chatLoop(context.Background(), h.con, in), boom)
}

type readerFunc func(prompt, text string) (string, error)

func (f readerFunc) ReadInput(prompt, text string) (string, error) { return f(prompt, text) }

// =============================================================================
// SHORTCUTS COMMAND TESTS (shortcuts_cmd.go)
// =============================================================================

type fakeShortcuts struct {
	list    []transport.Shortcut
	nextID  int64
	failAll error
}

func (f *fakeShortcuts) ListShortcuts(context.Context) ([]transport.Shortcut, error) {
	return f.list, f.failAll
}

func (f *fakeShortcuts) AddShortcut(_ context.Context, text string) (transport.Shortcut, error) {
	if f.failAll != nil {
		return transport.Shortcut{}, f.failAll
	}
	f.nextID++
	sc := transport.Shortcut{ID: f.nextID, Text: text}
	f.list = append(f.list, sc)
	return sc, nil
}

func (f *fakeShortcuts) DeleteShortcut(_ context.Context, id int64) error {
	if f.failAll != nil {
		return f.failAll
	}
	for i, sc := range f.list {
		if sc.ID == id {
			f.list = append(f.list[:i], f.list[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func TestRunShortcuts(t *testing.T) {
	ctx := context.Background()
	b := &fakeShortcuts{}
	var out bytes.Buffer

	require.NoError(t, runShortcuts(ctx, b, Args{Subcommand: "list"}, &out))
	require.Contains(t, out.String(), "Nenhum atalho salvo.")

	out.Reset()
	require.NoError(t, runShortcuts(ctx, b, Args{Subcommand: "add", Text: "  Resumo do dia "}, &out))
	require.Contains(t, out.String(), "atalho 1 salvo")
	require.Equal(t, "Resumo do dia", b.list[0].Text)

	out.Reset()
	require.NoError(t, runShortcuts(ctx, b, Args{Subcommand: "ls"}, &out))
	require.Contains(t, out.String(), "   1  Resumo do dia")

	out.Reset()
	require.NoError(t, runShortcuts(ctx, b, Args{Subcommand: "rm", ID: "1"}, &out))
	require.Contains(t, out.String(), "atalho 1 removido")
	require.Empty(t, b.list)
}

func TestRunShortcuts_JSON(t *testing.T) {
	ctx := context.Background()
	b := &fakeShortcuts{}
	var out bytes.Buffer

	require.NoError(t, runShortcuts(ctx, b, Args{Subcommand: "add", Text: "oi", JSON: true}, &out))
	require.Contains(t, out.String(), `"success": true`)
	require.Contains(t, out.String(), `"text": "oi"`)

	out.Reset()
	require.NoError(t, runShortcuts(ctx, b, Args{Subcommand: "list", JSON: true}, &out))
	require.Contains(t, out.String(), `"id": 1`)

	// An empty list is an empty array, not null.
	out.Reset()
	require.NoError(t, runShortcuts(ctx, &fakeShortcuts{}, Args{Subcommand: "list", JSON: true}, &out))
	require.Contains(t, out.String(), `"data": []`)
}

func TestRunShortcuts_Errors(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer

	tests := []struct {
		name     string
		backend  *fakeShortcuts
		args     Args
		wantCode int
	}{
		{"empty text", &fakeShortcuts{}, Args{Subcommand: "add", Text: "  "}, ExitUsageError},
		{"bad id", &fakeShortcuts{}, Args{Subcommand: "rm", ID: "abc"}, ExitUsageError},
		{"missing id", &fakeShortcuts{}, Args{Subcommand: "rm"}, ExitUsageError},
		{"unknown subcommand", &fakeShortcuts{}, Args{Subcommand: "rename"}, ExitUsageError},
		{
			"backend unreachable",
			&fakeShortcuts{failAll: &transport.ClientError{Type: transport.ErrTypeConnection, Message: "get failed"}},
			Args{Subcommand: "list"},
			ExitNetworkError,
		},
		{
			"login rejected",
			&fakeShortcuts{failAll: &transport.ClientError{Type: transport.ErrTypeUnauthorized, Message: "login rejected"}},
			Args{Subcommand: "add", Text: "oi"},
			ExitAuthError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runShortcuts(ctx, tt.backend, tt.args, &out)
			require.Error(t, err)
			if got := GetExitCode(err); got != tt.wantCode {
				t.Errorf("GetExitCode(%v) = %d, want %d", err, got, tt.wantCode)
			}
		})
	}
}

func TestRunShortcuts_AgainstServer(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, runShortcuts(ctx, h.client, Args{Subcommand: "add", Text: "Resumo do dia"}, &out))
	list, err := h.client.ListShortcuts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	out.Reset()
	require.NoError(t, runShortcuts(ctx, h.client, Args{Subcommand: "list"}, &out))
	require.Contains(t, out.String(), "Resumo do dia")
}

// =============================================================================
// APP TESTS (app.go, terminal.go, serve.go)
// =============================================================================

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Username = "ana"
	cfg.Backend.Password = "segredo"

	applyFlags(cfg, Args{URL: "http://jarvis:5000", Debug: true})
	require.Equal(t, "http://jarvis:5000", cfg.Backend.URL)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "segredo", cfg.Backend.Password)

	// Same user keeps the password.
	applyFlags(cfg, Args{User: "ana"})
	require.Equal(t, "segredo", cfg.Backend.Password)

	// Another user drops it.
	applyFlags(cfg, Args{User: "bia"})
	require.Equal(t, "bia", cfg.Backend.Username)
	require.Empty(t, cfg.Backend.Password)
}

func TestPromptPassword(t *testing.T) {
	orig := passwordReader
	t.Cleanup(func() { passwordReader = orig })

	passwordReader = func() ([]byte, error) { return []byte("segredo"), nil }
	var w bytes.Buffer
	pw, err := promptPassword(&w, "Senha para ana: ")
	require.NoError(t, err)
	require.Equal(t, "segredo", pw)
	require.True(t, strings.HasPrefix(w.String(), "Senha para ana: "))

	passwordReader = func() ([]byte, error) { return nil, io.ErrUnexpectedEOF }
	_, err = promptPassword(&w, "Senha: ")
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestEnsurePassword(t *testing.T) {
	orig := passwordReader
	t.Cleanup(func() { passwordReader = orig })
	passwordReader = func() ([]byte, error) { return []byte("segredo"), nil }

	newApp := func(user, password string, interactive bool) *App {
		cfg := config.Default()
		cfg.Backend.Username = user
		cfg.Backend.Password = password
		return &App{Config: cfg, Log: zerolog.Nop(), Stderr: io.Discard, Interactive: interactive}
	}

	app := newApp("", "", false)
	require.NoError(t, app.ensurePassword())

	app = newApp("ana", "já tenho", false)
	require.NoError(t, app.ensurePassword())
	require.Equal(t, "já tenho", app.Config.Backend.Password)

	app = newApp("ana", "", true)
	require.NoError(t, app.ensurePassword())
	require.Equal(t, "segredo", app.Config.Backend.Password)

	app = newApp("ana", "", false)
	err := app.ensurePassword()
	require.Error(t, err)
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestServerOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Username = "ana"
	cfg.Server.Password = "segredo"

	opts := serverOptions(cfg, Args{}, zerolog.Nop())
	require.Equal(t, cfg.Server.Addr, opts.Addr)
	require.Equal(t, "ana", opts.Username)

	opts = serverOptions(cfg, Args{Addr: ":6000", DBPath: "/tmp/j.db"}, zerolog.Nop())
	require.Equal(t, ":6000", opts.Addr)
	require.Equal(t, "/tmp/j.db", opts.DBPath)
}

func TestForceColorsEnabled(t *testing.T) {
	t.Cleanup(func() { ForceColorsEnabled(false) })

	ForceColorsEnabled(false)
	require.False(t, ColorsEnabled())
	require.Equal(t, termenv.Ascii, GetColorProfile())

	ForceColorsEnabled(true)
	require.True(t, ColorsEnabled())
}
