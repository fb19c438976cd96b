// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultInterval is the delay between revealed units in paced mode.
const DefaultInterval = 15 * time.Millisecond

// ErrJobClosed is returned when writing to a job whose input was closed.
var ErrJobClosed = errors.New("render job input closed")

// =============================================================================
// MODES AND OUTCOMES
// =============================================================================

// Mode selects how a job reveals text.
type Mode int

const (
	// ModePaced reveals one unit per interval, independent of arrival.
	ModePaced Mode = iota
	// ModePassThrough reveals every complete unit as soon as it arrives.
	ModePassThrough
)

// String returns the config name of the mode.
func (m Mode) String() string {
	if m == ModePassThrough {
		return "passthrough"
	}
	return "paced"
}

// ParseMode converts a config name into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paced", "typewriter":
		return ModePaced, true
	case "passthrough", "pass-through", "immediate":
		return ModePassThrough, true
	}
	return ModePaced, false
}

// Outcome is how a job ended.
type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeCompleted
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "running"
	}
}

// =============================================================================
// SINK
// =============================================================================

// Sink receives revealed text. Each call carries whole units only.
type Sink interface {
	Emit(text string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(string)

// Emit calls f(text).
func (f SinkFunc) Emit(text string) { f(text) }

// =============================================================================
// RENDERER
// =============================================================================

// Options configures a Renderer.
type Options struct {
	// Interval between units in paced mode (default: 15ms).
	Interval time.Duration

	// Logger for job lifecycle events.
	Logger zerolog.Logger
}

// Renderer starts render jobs. It is safe for concurrent use.
type Renderer struct {
	interval atomic.Int64
	log      zerolog.Logger
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	r := &Renderer{log: opts.Logger}
	r.SetInterval(opts.Interval)
	return r
}

// SetInterval changes the pacing interval for jobs started afterwards.
func (r *Renderer) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	r.interval.Store(int64(d))
}

// Interval returns the current pacing interval.
func (r *Renderer) Interval() time.Duration {
	return time.Duration(r.interval.Load())
}

// Start begins a job writing into sink. onComplete, if non-nil, is called
// exactly once after the last unit has been emitted. It is never called for
// a canceled job.
//
// The job stops when ctx is done, Cancel is called, or all input has been
// written, closed and emitted.
func (r *Renderer) Start(ctx context.Context, mode Mode, sink Sink, onComplete func()) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{
		mode:       mode,
		sink:       sink,
		onComplete: onComplete,
		ctx:        ctx,
		cancel:     cancel,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		log:        r.log,
	}
	if mode == ModePaced {
		j.limiter = rate.NewLimiter(rate.Every(r.Interval()), 1)
	}
	go j.run()
	return j
}

// Render is a convenience for a job whose whole text is already known.
func (r *Renderer) Render(ctx context.Context, mode Mode, text string, sink Sink, onComplete func()) *Job {
	j := r.Start(ctx, mode, sink, onComplete)
	_ = j.Write(text)
	j.Close()
	return j
}

// =============================================================================
// JOB
// =============================================================================

// Job reveals one response. Write and Close may be called from any goroutine.
type Job struct {
	mode       Mode
	sink       Sink
	onComplete func()
	limiter    *rate.Limiter
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	lex    Lexer
	closed bool

	// emitMu serializes emission against Cancel.
	emitMu  sync.Mutex
	emitted strings.Builder

	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	outcome atomic.Int32
}

// Mode returns the job's mode.
func (j *Job) Mode() Mode {
	return j.mode
}

// Write queues a fragment. Empty fragments are accepted and ignored.
func (j *Job) Write(fragment string) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrJobClosed
	}
	j.lex.Feed(fragment)
	j.mu.Unlock()
	j.signal()
	return nil
}

// Close marks the end of input.
func (j *Job) Close() {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		j.lex.Close()
	}
	j.mu.Unlock()
	j.signal()
}

// Cancel stops the job. Text already emitted stays; nothing is emitted after
// Cancel returns.
func (j *Job) Cancel() {
	j.cancel()
	// Wait out an emit that is already in progress.
	j.emitMu.Lock()
	j.emitMu.Unlock()
}

// Done is closed when the job has finished for any reason.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		return j.Outcome(), nil
	case <-ctx.Done():
		return j.Outcome(), ctx.Err()
	}
}

// Outcome returns the job's current outcome.
func (j *Job) Outcome() Outcome {
	return Outcome(j.outcome.Load())
}

// Emitted returns the text revealed so far.
func (j *Job) Emitted() string {
	j.emitMu.Lock()
	defer j.emitMu.Unlock()
	return j.emitted.String()
}

func (j *Job) signal() {
	select {
	case j.wake <- struct{}{}:
	default:
	}
}

func (j *Job) run() {
	defer close(j.done)

	for {
		text, exhausted := j.take()

		if text != "" {
			if j.limiter != nil {
				if err := j.limiter.Wait(j.ctx); err != nil {
					j.finish(OutcomeCanceled)
					return
				}
			}
			if !j.emit(text) {
				j.finish(OutcomeCanceled)
				return
			}
			continue
		}

		if exhausted {
			j.finish(OutcomeCompleted)
			return
		}

		select {
		case <-j.wake:
		case <-j.ctx.Done():
			j.finish(OutcomeCanceled)
			return
		}
	}
}

// take removes the next batch of units: one in paced mode, all available in
// pass-through mode. exhausted reports that input is closed and drained.
func (j *Job) take() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.mode == ModePaced {
		if u, ok := j.lex.Next(); ok {
			return u.Text, false
		}
		return "", j.lex.Done()
	}

	var b strings.Builder
	for {
		u, ok := j.lex.Next()
		if !ok {
			break
		}
		b.WriteString(u.Text)
	}
	return b.String(), j.lex.Done()
}

func (j *Job) emit(text string) bool {
	j.emitMu.Lock()
	defer j.emitMu.Unlock()
	if j.ctx.Err() != nil {
		return false
	}
	j.emitted.WriteString(text)
	j.sink.Emit(text)
	return true
}

func (j *Job) finish(o Outcome) {
	j.once.Do(func() {
		j.outcome.Store(int32(o))
		j.cancel()
		j.log.Debug().
			Str("mode", j.mode.String()).
			Str("outcome", o.String()).
			Msg("render job finished")
		if o == OutcomeCompleted && j.onComplete != nil {
			j.onComplete()
		}
	})
}
