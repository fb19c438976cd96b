// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder is a Sink that keeps every emission.
type recorder struct {
	mu    sync.Mutex
	emits []string
}

func (r *recorder) Emit(s string) {
	r.mu.Lock()
	r.emits = append(r.emits, s)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.emits...)
}

func (r *recorder) text() string {
	return strings.Join(r.all(), "")
}

func waitDone(t *testing.T, j *Job) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := j.Wait(ctx)
	require.NoError(t, err, "job did not finish")
	return o
}

// =============================================================================
// PACED MODE TESTS
// =============================================================================

func TestPaced_ByteIdenticalWithAtomicTags(t *testing.T) {
	input := "Olá!<br>Sou o <b>Jarvis</b>."
	rend := New(Options{Interval: time.Millisecond})
	rec := &recorder{}

	var completions atomic.Int32
	j := rend.Render(context.Background(), ModePaced, input, rec, func() { completions.Add(1) })
	require.Equal(t, OutcomeCompleted, waitDone(t, j))

	require.Equal(t, input, rec.text())
	require.Equal(t, int32(1), completions.Load())

	// One unit per emission; tags never split.
	for _, e := range rec.all() {
		if strings.HasPrefix(e, "<") {
			if !strings.HasSuffix(e, ">") {
				t.Errorf("partial tag emitted: %q", e)
			}
			continue
		}
		if len([]rune(e)) != 1 {
			t.Errorf("emission %q is more than one character", e)
		}
	}
	require.Contains(t, rec.all(), "<br>")
	require.Contains(t, rec.all(), "</b>")
}

func TestPaced_UnmatchedBracketIsLiteral(t *testing.T) {
	input := "5 < 6 e 7 > 3? não: a<b"
	rend := New(Options{Interval: time.Millisecond})
	rec := &recorder{}

	j := rend.Render(context.Background(), ModePaced, input, rec, nil)
	waitDone(t, j)

	// "< 6 e 7 >" is a tag by the first-'>' rule; the final "<b" has no '>'.
	require.Equal(t, input, rec.text())
	require.Equal(t, "<", rec.all()[len(rec.all())-2])
}

func TestPaced_RespectsInterval(t *testing.T) {
	interval := 15 * time.Millisecond
	rend := New(Options{Interval: interval})
	rec := &recorder{}

	start := time.Now()
	j := rend.Render(context.Background(), ModePaced, "abcdef", rec, nil)
	waitDone(t, j)
	elapsed := time.Since(start)

	// The first unit is immediate; five more follow one interval apart.
	if elapsed < 5*interval-2*time.Millisecond {
		t.Errorf("6 units rendered in %v, expected at least %v", elapsed, 5*interval)
	}
}

func TestPaced_IndependentOfArrival(t *testing.T) {
	rend := New(Options{Interval: time.Millisecond})
	rec := &recorder{}
	j := rend.Start(context.Background(), ModePaced, rec, nil)

	for _, f := range []string{"Ol", "á, tu", "do bem?"} {
		require.NoError(t, j.Write(f))
	}
	j.Close()
	waitDone(t, j)

	require.Equal(t, "Olá, tudo bem?", rec.text())
	require.Len(t, rec.all(), len([]rune("Olá, tudo bem?")))
}

// =============================================================================
// PASS-THROUGH MODE TESTS
// =============================================================================

func TestPassThrough_GrowsMonotonically(t *testing.T) {
	rend := New(Options{})
	var (
		mu       sync.Mutex
		shown    string
		history  []string
		complete atomic.Int32
	)
	sink := SinkFunc(func(s string) {
		mu.Lock()
		shown += s
		history = append(history, shown)
		mu.Unlock()
	})
	j := rend.Start(context.Background(), ModePassThrough, sink, func() { complete.Add(1) })

	for _, f := range []string{"Ol", "á, tu", "do bem?"} {
		require.NoError(t, j.Write(f))
		time.Sleep(5 * time.Millisecond)
	}
	j.Close()
	require.Equal(t, OutcomeCompleted, waitDone(t, j))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "Olá, tudo bem?", shown)
	for i := 1; i < len(history); i++ {
		if !strings.HasPrefix(history[i], history[i-1]) {
			t.Errorf("text shrank or changed: %q -> %q", history[i-1], history[i])
		}
	}
	require.Equal(t, int32(1), complete.Load())
}

func TestPassThrough_HoldsTagSplitAcrossFragments(t *testing.T) {
	rend := New(Options{})
	rec := &recorder{}
	j := rend.Start(context.Background(), ModePassThrough, rec, nil)

	require.NoError(t, j.Write("a<b"))
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, "a", rec.text())

	require.NoError(t, j.Write("r>c"))
	j.Close()
	waitDone(t, j)

	require.Equal(t, "a<br>c", rec.text())
	for _, e := range rec.all() {
		if strings.Contains(e, "<") && !strings.Contains(e, "<br>") {
			t.Errorf("partial tag in emission %q", e)
		}
	}
}

func TestPassThrough_EmptyFragments(t *testing.T) {
	rend := New(Options{})
	rec := &recorder{}
	j := rend.Start(context.Background(), ModePassThrough, rec, nil)
	require.NoError(t, j.Write(""))
	require.NoError(t, j.Write("ok"))
	require.NoError(t, j.Write(""))
	j.Close()
	waitDone(t, j)
	require.Equal(t, "ok", rec.text())
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestCancel_KeepsPartialAndSkipsCompletion(t *testing.T) {
	rend := New(Options{Interval: 20 * time.Millisecond})
	rec := &recorder{}
	var completed atomic.Bool

	j := rend.Render(context.Background(), ModePaced, "uma resposta bem longa", rec, func() { completed.Store(true) })
	time.Sleep(50 * time.Millisecond)
	j.Cancel()
	partial := rec.text()

	require.Equal(t, OutcomeCanceled, waitDone(t, j))
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, partial, rec.text(), "emission after cancel")
	require.NotEmpty(t, partial)
	require.True(t, strings.HasPrefix("uma resposta bem longa", partial))
	require.False(t, completed.Load())
	require.Equal(t, partial, j.Emitted())
}

func TestCancel_ViaContext(t *testing.T) {
	rend := New(Options{Interval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	j := rend.Render(ctx, ModePaced, "abcdefghij", &recorder{}, nil)
	cancel()
	require.Equal(t, OutcomeCanceled, waitDone(t, j))
}

func TestCancelAfterCompletion(t *testing.T) {
	rend := New(Options{Interval: time.Millisecond})
	var n atomic.Int32
	j := rend.Render(context.Background(), ModePassThrough, "x", &recorder{}, func() { n.Add(1) })
	waitDone(t, j)
	j.Cancel()
	j.Cancel()
	require.Equal(t, OutcomeCompleted, j.Outcome())
	require.Equal(t, int32(1), n.Load())
}

func TestWriteAfterClose(t *testing.T) {
	rend := New(Options{})
	j := rend.Start(context.Background(), ModePassThrough, &recorder{}, nil)
	j.Close()
	require.ErrorIs(t, j.Write("late"), ErrJobClosed)
	waitDone(t, j)
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{"paced": ModePaced, "PassThrough": ModePassThrough, "immediate": ModePassThrough}
	for in, want := range tests {
		got, ok := ParseMode(in)
		if !ok || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseMode("warp"); ok {
		t.Error("ParseMode accepted unknown mode")
	}
}

func TestSetInterval_Default(t *testing.T) {
	rend := New(Options{})
	require.Equal(t, DefaultInterval, rend.Interval())
	rend.SetInterval(30 * time.Millisecond)
	require.Equal(t, 30*time.Millisecond, rend.Interval())
}
