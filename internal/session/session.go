// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/feedback"
	"github.com/jeranaias/jarvis-tui/internal/render"
	"github.com/jeranaias/jarvis-tui/internal/shortcuts"
	"github.com/jeranaias/jarvis-tui/internal/timeline"
	"github.com/jeranaias/jarvis-tui/internal/transport"
)

// Session errors.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrBusy           = errors.New("a request is already in flight")
	ErrClosed         = errors.New("session closed")
	ErrUnknownCommand = errors.New("unknown command")
)

// Backend is everything a session needs from the chat server.
// *transport.Client implements it.
type Backend interface {
	feedback.Submitter
	shortcuts.Backend
	SendBuffered(ctx context.Context, text string) (*transport.Reply, error)
	SendStreamed(ctx context.Context, text string, onFragment func(string)) (string, error)
	Login(ctx context.Context) error
	Timestamp() string
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Session.
type Options struct {
	// Streaming selects streamed responses for new sends.
	Streaming bool

	// StreamMode is how streamed text is revealed (default: pass-through).
	// Buffered responses are always paced.
	StreamMode render.Mode

	// Interval is the pacing delay per unit (default: 15ms).
	Interval time.Duration

	// FallbackMessage is shown in place of a failed buffered response.
	FallbackMessage string

	// StreamNotice is shown after partial text when a stream fails.
	StreamNotice string

	// EventBuffer is the capacity of the event channel (default: 256).
	EventBuffer int

	// Logger for session lifecycle. The zero value discards output.
	Logger zerolog.Logger
}

// DefaultOptions returns options matching config.Default.
func DefaultOptions() Options {
	return Options{
		StreamMode:      render.ModePassThrough,
		Interval:        render.DefaultInterval,
		FallbackMessage: config.DefaultFallbackMessage,
		StreamNotice:    config.DefaultStreamNotice,
		EventBuffer:     256,
		Logger:          zerolog.Nop(),
	}
}

// OptionsFromConfig derives session options from a loaded config.
func OptionsFromConfig(cfg *config.Config, log zerolog.Logger) Options {
	opts := DefaultOptions()
	opts.Logger = log
	opts.Streaming = cfg.UI.Streaming
	opts.Interval = cfg.Render.Interval()
	if m, ok := render.ParseMode(cfg.Render.StreamMode); ok {
		opts.StreamMode = m
	}
	if cfg.UI.FallbackMessage != "" {
		opts.FallbackMessage = cfg.UI.FallbackMessage
	}
	if cfg.UI.StreamNotice != "" {
		opts.StreamNotice = cfg.UI.StreamNotice
	}
	return opts
}

// NewClient builds the transport client described by cfg.
func NewClient(cfg *config.Config, log zerolog.Logger) *transport.Client {
	ep := cfg.Backend.Endpoints
	return transport.NewClient(&transport.Config{
		BaseURL:       cfg.Backend.URL,
		Timeout:       cfg.Backend.Timeout(),
		StreamTimeout: cfg.Backend.StreamTimeout(),
		Username:      cfg.Backend.Username,
		Password:      cfg.Backend.Password,
		Logger:        log,
		Endpoints: transport.Endpoints{
			Ask:            ep.Ask,
			AskStream:      ep.AskStream,
			Feedback:       ep.Feedback,
			ListShortcuts:  ep.GetShortcuts,
			AddShortcut:    ep.AddShortcut,
			DeleteShortcut: ep.DeleteShortcut,
			Login:          ep.Login,
		},
	})
}

// =============================================================================
// SESSION
// =============================================================================

// activeRender is the paced job currently revealing an exchange.
type activeRender struct {
	exchangeID string
	job        *render.Job

	mu     sync.Mutex
	failed bool
	notice string
}

func (a *activeRender) fail(notice string) {
	a.mu.Lock()
	a.failed = true
	a.notice = notice
	a.mu.Unlock()
}

func (a *activeRender) failure() (bool, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failed, a.notice
}

// Session is one chat conversation with a backend. It owns the timeline,
// the renderer, the feedback tracker and the shortcut registry, and tears
// all of them down in Close.
//
// Session is safe for concurrent use. At most one send is in flight.
type Session struct {
	backend   Backend
	log       zerolog.Logger
	timeline  *timeline.Timeline
	renderer  *render.Renderer
	feedback  *feedback.Tracker
	shortcuts *shortcuts.Registry

	ctx    context.Context
	cancel context.CancelFunc

	busy      atomic.Bool
	streaming atomic.Bool

	mu     sync.Mutex
	opts   Options
	active *activeRender

	evMu   sync.RWMutex
	events chan Event
	closed bool

	watcher   *config.Watcher
	closeOnce sync.Once
}

// New creates a session on backend. Components are wired in dependency
// order: transport, timeline, renderer, feedback, shortcuts.
func New(backend Backend, opts Options) *Session {
	def := DefaultOptions()
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = def.EventBuffer
	}
	if opts.FallbackMessage == "" {
		opts.FallbackMessage = def.FallbackMessage
	}
	if opts.StreamNotice == "" {
		opts.StreamNotice = def.StreamNotice
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		backend: backend,
		log:     opts.Logger.With().Str("component", "session").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		opts:    opts,
		events:  make(chan Event, opts.EventBuffer),
	}
	s.streaming.Store(opts.Streaming)

	s.timeline = timeline.New(func(ex timeline.Exchange) {
		s.emit(ExchangeChanged{Exchange: ex})
	})
	s.renderer = render.New(render.Options{Interval: opts.Interval, Logger: opts.Logger})
	s.feedback = feedback.NewTracker(backend, opts.Logger, func(c feedback.Change) {
		s.emit(FeedbackChanged{Change: c})
	})
	s.shortcuts = shortcuts.New(backend, opts.Logger, func(items []shortcuts.Shortcut) {
		s.emit(ShortcutsChanged{Items: items})
	})
	return s
}

// Open logs in when credentials are configured and loads the shortcut list.
// A failed shortcut load is reported as a toast, not an error.
func (s *Session) Open(ctx context.Context) error {
	if err := s.backend.Login(ctx); err != nil && !errors.Is(err, transport.ErrNoCredentials) {
		return fmt.Errorf("login: %w", err)
	}
	if err := s.shortcuts.Load(ctx); err != nil {
		s.toast(ToastWarning, "Não foi possível carregar os atalhos.")
	}
	return nil
}

// Events returns the event channel. It is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Timeline returns the conversation history.
func (s *Session) Timeline() *timeline.Timeline { return s.timeline }

// Feedback returns the feedback tracker.
func (s *Session) Feedback() *feedback.Tracker { return s.feedback }

// Shortcuts returns the shortcut registry.
func (s *Session) Shortcuts() *shortcuts.Registry { return s.shortcuts }

// Streaming reports whether the next send is streamed.
func (s *Session) Streaming() bool { return s.streaming.Load() }

// Busy reports whether a request is in flight.
func (s *Session) Busy() bool { return s.busy.Load() }

// Rendering reports whether a response is still being revealed.
func (s *Session) Rendering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Dispatch runs cmd. Send returns once the request has finished; the reveal
// of its response may still be running.
func (s *Session) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	if s.ctx.Err() != nil {
		return Result{}, ErrClosed
	}

	switch c := cmd.(type) {
	case Send:
		return s.send(ctx, c.Text)

	case Rate:
		var fc feedback.Command = feedback.Dislike{}
		if c.Positive {
			fc = feedback.Like{}
		}
		return s.rate(ctx, c.ExchangeID, fc)

	case Correct:
		return s.rate(ctx, c.ExchangeID, c.Action.command(c.Text))

	case SaveShortcut:
		return s.saveShortcut(ctx, c.ExchangeID)

	case DeleteShortcut:
		if err := s.shortcuts.Delete(ctx, c.ID); err != nil {
			if errors.Is(err, shortcuts.ErrUnknownShortcut) {
				return Result{}, err
			}
			s.toast(ToastWarning, "Não foi possível excluir o atalho no servidor.")
		}
		return Result{}, nil

	case UseShortcut:
		text, err := s.shortcuts.Use(c.ID)
		if err != nil {
			return Result{}, err
		}
		return Result{Input: text}, nil

	case LoadShortcuts:
		if err := s.shortcuts.Load(ctx); err != nil {
			s.toast(ToastWarning, "Não foi possível carregar os atalhos.")
			return Result{}, err
		}
		return Result{}, nil

	case ToggleStreaming:
		on := !s.streaming.Load()
		s.streaming.Store(on)
		s.log.Debug().Bool("streaming", on).Msg("response mode changed")
		s.emit(StreamingChanged{Enabled: on})
		return Result{Streaming: on}, nil

	case Clear:
		return Result{}, s.clear()

	case Login:
		return Result{}, s.backend.Login(ctx)

	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

// =============================================================================
// SEND
// =============================================================================

func (s *Session) send(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}
	if !s.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	s.emit(InputChanged{Enabled: false})
	defer func() {
		s.busy.Store(false)
		s.emit(InputChanged{Enabled: true})
	}()

	// A new message takes over the screen from an unfinished reveal.
	s.interruptActive()

	ex := s.timeline.Append(text)
	streamed := s.streaming.Load()
	s.log.Debug().Str("exchange", ex.ID).Bool("streamed", streamed).Msg("sending message")

	if streamed {
		s.sendStreamed(ctx, ex)
	} else {
		s.sendBuffered(ctx, ex)
	}
	return Result{ExchangeID: ex.ID}, nil
}

func (s *Session) sendBuffered(ctx context.Context, ex timeline.Exchange) {
	reply, err := s.backend.SendBuffered(ctx, ex.UserText)

	var text, ts string
	failed := err != nil
	if failed {
		s.log.Error().Err(err).Str("exchange", ex.ID).Msg("ask failed")
		text = s.options().FallbackMessage
		ts = s.backend.Timestamp()
	} else {
		text, ts = reply.Text, reply.Timestamp
	}

	_ = s.timeline.BeginStreaming(ex.ID, false)
	_ = s.timeline.SetTimestamp(ex.ID, ts)

	a := s.startRender(ex.ID, render.ModePaced)
	if failed {
		a.fail("")
	}
	_ = a.job.Write(text)
	a.job.Close()
}

func (s *Session) sendStreamed(ctx context.Context, ex timeline.Exchange) {
	_ = s.timeline.BeginStreaming(ex.ID, true)
	_ = s.timeline.SetTimestamp(ex.ID, s.backend.Timestamp())

	opts := s.options()
	a := s.startRender(ex.ID, opts.StreamMode)

	_, err := s.backend.SendStreamed(ctx, ex.UserText, func(fragment string) {
		_ = a.job.Write(fragment)
	})
	if err != nil {
		s.log.Error().Err(err).Str("exchange", ex.ID).
			Int("partial_bytes", len(transport.PartialText(err))).
			Msg("stream failed")
		a.fail(opts.StreamNotice)
	}
	a.job.Close()
}

// startRender begins revealing into exchange id and makes it the active job.
func (s *Session) startRender(id string, mode render.Mode) *activeRender {
	a := &activeRender{exchangeID: id}
	sink := render.SinkFunc(s.timeline.Writer(id))
	a.job = s.renderer.Start(s.ctx, mode, sink, func() { s.finish(a) })

	s.mu.Lock()
	s.active = a
	s.mu.Unlock()
	return a
}

// finish runs once when a reveal completes on its own.
func (s *Session) finish(a *activeRender) {
	s.mu.Lock()
	if s.active == a {
		s.active = nil
	}
	s.mu.Unlock()

	if failed, notice := a.failure(); failed {
		_ = s.timeline.Fail(a.exchangeID, notice)
	} else {
		_ = s.timeline.Complete(a.exchangeID, false)
	}

	ex, ok := s.timeline.Get(a.exchangeID)
	if !ok {
		return
	}
	if ex.State == timeline.StateComplete {
		if err := s.feedback.Attach(ex.ID, ex.UserText, ex.ResponseText); err != nil {
			s.log.Debug().Err(err).Str("exchange", ex.ID).Msg("feedback not attached")
		}
	}
	s.emit(ExchangeFinished{Exchange: ex})
}

// interruptActive cancels an unfinished reveal. The exchange keeps the text
// shown so far and gets no feedback controls.
func (s *Session) interruptActive() {
	s.mu.Lock()
	a := s.active
	s.active = nil
	s.mu.Unlock()
	if a == nil {
		return
	}

	a.job.Cancel()
	<-a.job.Done()
	if a.job.Outcome() != render.OutcomeCanceled {
		return
	}

	if failed, notice := a.failure(); failed {
		_ = s.timeline.Fail(a.exchangeID, notice)
	} else {
		_ = s.timeline.Complete(a.exchangeID, true)
	}
	s.log.Debug().Str("exchange", a.exchangeID).Msg("reveal interrupted")
	if ex, ok := s.timeline.Get(a.exchangeID); ok {
		s.emit(ExchangeFinished{Exchange: ex})
	}
}

// =============================================================================
// FEEDBACK AND SHORTCUTS
// =============================================================================

func (s *Session) rate(ctx context.Context, id string, cmd feedback.Command) (Result, error) {
	res, err := s.feedback.Dispatch(id, cmd)
	if err != nil {
		return Result{Feedback: res.State}, err
	}
	if res.Record != nil {
		if err := s.feedback.Submit(ctx, *res.Record); err != nil {
			s.toast(ToastWarning, "Não foi possível enviar o feedback.")
		} else {
			s.toast(ToastSuccess, "Obrigado pelo feedback!")
		}
	}
	return Result{Feedback: res.State}, nil
}

func (s *Session) saveShortcut(ctx context.Context, id string) (Result, error) {
	ex, ok := s.timeline.Get(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", timeline.ErrUnknownExchange, id)
	}
	sc, err := s.shortcuts.Add(ctx, ex.UserText, ex.ID)
	if err != nil {
		switch {
		case errors.Is(err, shortcuts.ErrAlreadyPromoted), errors.Is(err, shortcuts.ErrPromoteInFlight):
			s.toast(ToastInfo, "Esta mensagem já é um atalho.")
		default:
			s.toast(ToastError, "Não foi possível salvar o atalho.")
		}
		return Result{}, err
	}
	s.toast(ToastSuccess, "Atalho salvo!")
	return Result{Shortcut: &sc}, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func (s *Session) clear() error {
	if s.busy.Load() {
		return ErrBusy
	}
	s.interruptActive()
	s.timeline.Reset()
	s.feedback.Reset()
	s.shortcuts.ResetOrigins()
	s.log.Info().Msg("conversation cleared")
	s.emit(Cleared{})
	return nil
}

func (s *Session) options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// Apply updates the reveal settings from a reloaded config. Streaming, once
// toggled by the user, is left alone.
func (s *Session) Apply(cfg *config.Config) {
	next := OptionsFromConfig(cfg, s.opts.Logger)

	s.mu.Lock()
	s.opts.Interval = next.Interval
	s.opts.StreamMode = next.StreamMode
	s.opts.FallbackMessage = next.FallbackMessage
	s.opts.StreamNotice = next.StreamNotice
	s.mu.Unlock()

	s.renderer.SetInterval(next.Interval)
	s.log.Info().Dur("interval", next.Interval).Str("stream_mode", next.StreamMode.String()).Msg("settings applied")
}

// WatchConfig applies edits to the config file at path while the session
// is open. The watcher is stopped by Close.
func (s *Session) WatchConfig(path string) error {
	w, err := config.Watch(path, 250*time.Millisecond, s.opts.Logger, s.Apply)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
	return nil
}

// Close stops any reveal and the config watcher, then closes the event
// channel. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.interruptActive()
		s.cancel()

		s.mu.Lock()
		w := s.watcher
		s.watcher = nil
		s.mu.Unlock()
		if w != nil {
			err = w.Close()
		}

		s.evMu.Lock()
		s.closed = true
		close(s.events)
		s.evMu.Unlock()
		s.log.Debug().Msg("session closed")
	})
	return err
}

// emit never blocks: observers re-read state, so a dropped event only
// delays a redraw.
func (s *Session) emit(ev Event) {
	s.evMu.RLock()
	defer s.evMu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.log.Debug().Str("event", fmt.Sprintf("%T", ev)).Msg("event channel full, dropped event")
	}
}

func (s *Session) toast(level ToastLevel, msg string) {
	s.emit(Toast{Level: level, Message: msg})
}
