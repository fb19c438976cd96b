// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is where the development backend listens.
	DefaultAddr = "127.0.0.1:5000"

	// MaxRequestBodySize bounds JSON and form bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// StreamChunkBytes is the size of each streamed write. Chunks are raw
	// byte slices and may split a multi-byte character.
	StreamChunkBytes = 8

	// SessionCookie names the login cookie.
	SessionCookie = "jarvis_session"

	internalErrorText = "Desculpe, ocorreu um erro interno. Tente novamente."
	badLoginText      = "Nome de utilizador ou palavra-passe incorretos."
)

// ============================================================================
// RESPONDER
// ============================================================================

// Responder produces assistant replies.
type Responder interface {
	Reply(ctx context.Context, user User, message string) (string, error)
}

// KnowledgeResponder answers from the store's knowledge base and echoes
// anything it does not know.
type KnowledgeResponder struct {
	Store *Store
}

// Reply implements Responder.
func (k KnowledgeResponder) Reply(ctx context.Context, user User, message string) (string, error) {
	content, ok, err := k.Store.LookupKnowledge(ctx, message)
	if err != nil {
		return "", err
	}
	if ok {
		return content, nil
	}
	return fmt.Sprintf("Olá, <b>%s</b>! Você disse: <i>%s</i>. Ainda estou aprendendo sobre isso.",
		html.EscapeString(user.Username), html.EscapeString(message)), nil
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, user User, message string) (string, error)

// Reply implements Responder.
func (f ResponderFunc) Reply(ctx context.Context, user User, message string) (string, error) {
	return f(ctx, user, message)
}

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	// Addr is the listen address (default: 127.0.0.1:5000).
	Addr string

	// DBPath is the SQLite database file, or ":memory:".
	DBPath string

	// ChunkDelay is the pause between streamed chunks.
	ChunkDelay time.Duration

	// Username and Password seed an account on startup when set.
	Username string
	Password string

	// Responder overrides the default knowledge responder.
	Responder Responder

	// Logger for requests and lifecycle. The zero value discards output.
	Logger zerolog.Logger

	// Now supplies the clock for reply timestamps.
	Now func() time.Time
}

// Server is the development chat backend. It serves the same contract as
// the production backend: login, ask, ask_stream, feedback and shortcuts.
type Server struct {
	opts      Options
	store     *Store
	responder Responder
	sessions  *sessionStore
	router    *http.ServeMux
	log       zerolog.Logger
	now       func() time.Time
}

// New opens the store, seeds the configured account and sets up routes.
func New(opts Options) (*Server, error) {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.DBPath == "" {
		opts.DBPath = ":memory:"
	}

	store, err := OpenStore(opts.DBPath)
	if err != nil {
		return nil, err
	}
	if opts.Username != "" {
		if err := store.EnsureUser(context.Background(), opts.Username, opts.Password, "admin"); err != nil {
			store.Close()
			return nil, fmt.Errorf("seed user: %w", err)
		}
	}

	s := &Server{
		opts:      opts,
		store:     store,
		responder: opts.Responder,
		sessions:  newSessionStore(),
		router:    http.NewServeMux(),
		log:       opts.Logger.With().Str("component", "server").Logger(),
		now:       opts.Now,
	}
	if s.responder == nil {
		s.responder = KnowledgeResponder{Store: store}
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.setupRoutes()
	return s, nil
}

// Store returns the server's database.
func (s *Server) Store() *Store {
	return s.store
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /login", s.handleLoginPage)
	s.router.HandleFunc("POST /login", s.handleLogin)
	s.router.HandleFunc("GET /logout", s.requireLogin(s.handleLogout))

	s.router.HandleFunc("POST /ask", s.requireLogin(s.handleAsk))
	s.router.HandleFunc("POST /ask_stream", s.requireLogin(s.handleAskStream))
	s.router.HandleFunc("POST /feedback", s.requireLogin(s.handleFeedback))

	s.router.HandleFunc("GET /get_shortcuts", s.requireLogin(s.handleListShortcuts))
	s.router.HandleFunc("POST /add_shortcut", s.requireLogin(s.handleAddShortcut))
	s.router.HandleFunc("POST /delete_shortcut", s.requireLogin(s.handleDeleteShortcut))

	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.log),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.log),
		RateLimitMiddleware(DefaultRateLimiter()),
	)(s.router)
}

// ============================================================================
// AUTH
// ============================================================================

type userKey struct{}

func userFrom(ctx context.Context) User {
	u, _ := ctx.Value(userKey{}).(User)
	return u
}

// requireLogin redirects requests without a valid session to /login.
func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		u, ok := s.sessions.get(c.Value)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "POST username and password to /login")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	xhr := r.Header.Get("X-Requested-With") == "XMLHttpRequest"

	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "Pedido inválido.")
		return
	}

	u, err := s.store.Authenticate(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, ErrBadCredentials) {
			s.log.Error().Err(err).Msg("authenticate")
		}
		s.log.Info().Str("username", r.PostForm.Get("username")).Msg("login rejected")
		if xhr {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": badLoginText})
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	token := s.sessions.create(u)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.log.Info().Str("username", u.Username).Msg("login")

	if xhr {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "redirect_url": "/"})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.sessions.delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusFound)
}

// ============================================================================
// ASK
// ============================================================================

type askRequest struct {
	Message string `json:"message"`
}

// reply runs the responder and records both turns in the history.
func (s *Server) reply(w http.ResponseWriter, r *http.Request) (string, int, error) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		return "", http.StatusBadRequest, errors.New("message is required")
	}

	u := userFrom(r.Context())
	sessionID := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		sessionID = c.Value
	}

	text, err := s.responder.Reply(r.Context(), u, req.Message)
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	for _, turn := range [][2]string{{"user", req.Message}, {"model", text}} {
		if err := s.store.AppendHistory(r.Context(), u.ID, sessionID, turn[0], turn[1]); err != nil {
			s.log.Warn().Err(err).Msg("append history")
		}
	}
	return text, http.StatusOK, nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	text, status, err := s.reply(w, r)
	if err != nil {
		s.log.Error().Err(err).Int("status", status).Msg("ask failed")
		writeJSON(w, status, map[string]string{"text": internalErrorText})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"text":      text,
		"timestamp": s.now().Format("15:04"),
	})
}

func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	text, status, err := s.reply(w, r)
	if err != nil {
		s.log.Error().Err(err).Int("status", status).Msg("ask_stream failed")
		http.Error(w, internalErrorText, status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	data := []byte(text)
	for len(data) > 0 {
		n := min(StreamChunkBytes, len(data))
		if _, err := w.Write(data[:n]); err != nil {
			s.log.Debug().Err(err).Msg("client went away")
			return
		}
		flusher.Flush()
		data = data[n:]

		if s.opts.ChunkDelay > 0 && len(data) > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(s.opts.ChunkDelay):
			}
		}
	}
}

// ============================================================================
// FEEDBACK
// ============================================================================

type feedbackRequest struct {
	UserQuery   string  `json:"user_query"`
	BotResponse string  `json:"bot_response"`
	Rating      *int    `json:"rating"`
	Correction  *string `json:"correction"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil || req.UserQuery == "" || req.BotResponse == "" || req.Rating == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Dados de feedback incompletos."})
		return
	}

	u := userFrom(r.Context())
	err := s.store.AddFeedback(r.Context(), u.ID, FeedbackRow{
		UserQuery:   req.UserQuery,
		BotResponse: req.BotResponse,
		Rating:      *req.Rating,
		Correction:  req.Correction,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("store feedback")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Erro interno ao guardar feedback."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Obrigado pelo seu feedback!"})
}

// ============================================================================
// SHORTCUTS
// ============================================================================

func (s *Server) handleListShortcuts(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListShortcuts(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.log.Error().Err(err).Msg("list shortcuts")
		s.writeError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shortcuts": list})
}

func (s *Server) handleAddShortcut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Texto do atalho não pode ser vazio."})
		return
	}

	id, err := s.store.AddShortcut(r.Context(), userFrom(r.Context()).ID, req.Text)
	if err != nil {
		s.log.Error().Err(err).Msg("add shortcut")
		s.writeError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Atalho adicionado!", "id": id, "text": req.Text})
}

func (s *Server) handleDeleteShortcut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.ID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "ID do atalho não fornecido."})
		return
	}

	err := s.store.DeleteShortcut(r.Context(), userFrom(r.Context()).ID, req.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Atalho não encontrado."})
	case err != nil:
		s.log.Error().Err(err).Msg("delete shortcut")
		s.writeError(w, http.StatusInternalServerError, "Erro interno.")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Atalho removido."})
	}
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info().Msg("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Close releases the database. Call after Serve returns.
func (s *Server) Close() error {
	return s.store.Close()
}

// ============================================================================
// SESSIONS
// ============================================================================

type sessionStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func newSessionStore() *sessionStore {
	return &sessionStore{users: make(map[string]User)}
}

func (st *sessionStore) create(u User) string {
	token := uuid.NewString()
	st.mu.Lock()
	st.users[token] = u
	st.mu.Unlock()
	return token
}

func (st *sessionStore) get(token string) (User, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	u, ok := st.users[token]
	return u, ok
}

func (st *sessionStore) delete(token string) {
	st.mu.Lock()
	delete(st.users, token)
	st.mu.Unlock()
}

// ============================================================================
// HELPERS
// ============================================================================

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodySize)).Decode(v)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
