// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package shortcuts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jarvis-tui/internal/transport"
)

// fakeBackend is an in-memory Backend. Calls block on gate when it is set.
type fakeBackend struct {
	mu      sync.Mutex
	list    []transport.Shortcut
	nextID  int64
	gate    chan struct{}
	started chan struct{}
	failAdd error
	failDel error
}

func (f *fakeBackend) wait() {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeBackend) ListShortcuts(context.Context) ([]transport.Shortcut, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.Shortcut(nil), f.list...), nil
}

func (f *fakeBackend) AddShortcut(_ context.Context, text string) (transport.Shortcut, error) {
	f.wait()
	if f.failAdd != nil {
		return transport.Shortcut{}, f.failAdd
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := transport.Shortcut{ID: f.nextID, Text: text}
	f.list = append(f.list, s)
	return s, nil
}

func (f *fakeBackend) DeleteShortcut(_ context.Context, id int64) error {
	f.wait()
	return f.failDel
}

func TestLoad_ReplacesWholesale(t *testing.T) {
	be := &fakeBackend{list: []transport.Shortcut{{ID: 9, Text: "nove"}, {ID: 4, Text: "quatro"}}}
	var notified [][]Shortcut
	reg := New(be, zerolog.Nop(), func(s []Shortcut) { notified = append(notified, s) })

	require.NoError(t, reg.Load(context.Background()))
	want := []Shortcut{{ID: 9, Text: "nove"}, {ID: 4, Text: "quatro"}}
	if diff := cmp.Diff(want, reg.Items()); diff != "" {
		t.Errorf("Items() mismatch (-want +got):\n%s", diff)
	}

	be.list = []transport.Shortcut{{ID: 12, Text: "doze"}}
	require.NoError(t, reg.Load(context.Background()))
	require.Equal(t, []Shortcut{{ID: 12, Text: "doze"}}, reg.Items())
	require.Len(t, notified, 2)
}

func TestAdd_InsertsOnlyWithServerID(t *testing.T) {
	be := &fakeBackend{nextID: 40, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	reg := New(be, zerolog.Nop(), nil)

	done := make(chan Shortcut)
	go func() {
		s, err := reg.Add(context.Background(), "Qual a previsão?", "ex1")
		require.NoError(t, err)
		done <- s
	}()

	<-be.started
	require.Empty(t, reg.Items(), "entry visible before server assigned an id")
	require.False(t, reg.CanPromote("ex1"))

	close(be.gate)
	s := <-done
	require.Equal(t, Shortcut{ID: 41, Text: "Qual a previsão?"}, s)
	require.Equal(t, []Shortcut{s}, reg.Items())

	_, err := reg.Add(context.Background(), "Qual a previsão?", "ex1")
	require.ErrorIs(t, err, ErrAlreadyPromoted)
	require.False(t, reg.CanPromote("ex1"))
}

func TestAdd_FailureReenablesOrigin(t *testing.T) {
	be := &fakeBackend{failAdd: errors.New("500")}
	reg := New(be, zerolog.Nop(), nil)

	_, err := reg.Add(context.Background(), "x", "ex1")
	require.Error(t, err)
	require.True(t, reg.CanPromote("ex1"))
	require.Empty(t, reg.Items())

	_, err = reg.Add(context.Background(), "   ", "ex2")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestDelete_OptimisticWhileInFlight(t *testing.T) {
	be := &fakeBackend{
		list:    []transport.Shortcut{{ID: 7, Text: "sete"}, {ID: 8, Text: "oito"}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	reg := New(be, zerolog.Nop(), nil)
	require.NoError(t, reg.Load(context.Background()))

	errc := make(chan error, 1)
	go func() { errc <- reg.Delete(context.Background(), 7) }()

	<-be.started
	require.Equal(t, []Shortcut{{ID: 8, Text: "oito"}}, reg.Items())

	close(be.gate)
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("delete did not return")
	}
}

func TestDelete_NoRollbackOnFailure(t *testing.T) {
	be := &fakeBackend{
		list:    []transport.Shortcut{{ID: 7, Text: "sete"}},
		failDel: errors.New("404"),
	}
	reg := New(be, zerolog.Nop(), nil)
	require.NoError(t, reg.Load(context.Background()))

	require.Error(t, reg.Delete(context.Background(), 7))
	require.Empty(t, reg.Items())

	// A reload reconciles with the server, which still has it.
	require.NoError(t, reg.Load(context.Background()))
	require.Len(t, reg.Items(), 1)
}

func TestDelete_UnknownIDSkipsServer(t *testing.T) {
	be := &fakeBackend{
		list:    []transport.Shortcut{{ID: 7, Text: "sete"}},
		started: make(chan struct{}, 1),
	}
	notified := 0
	reg := New(be, zerolog.Nop(), func([]Shortcut) { notified++ })
	require.NoError(t, reg.Load(context.Background()))
	notified = 0

	err := reg.Delete(context.Background(), 99)
	require.ErrorIs(t, err, ErrUnknownShortcut)
	require.Len(t, be.started, 0, "server called for an unknown id")
	require.Zero(t, notified)
	require.Equal(t, []Shortcut{{ID: 7, Text: "sete"}}, reg.Items())
}

func TestUse_PopulatesWithoutSending(t *testing.T) {
	be := &fakeBackend{list: []transport.Shortcut{{ID: 3, Text: "Resumo do dia"}}}
	reg := New(be, zerolog.Nop(), nil)
	require.NoError(t, reg.Load(context.Background()))

	text, err := reg.Use(3)
	require.NoError(t, err)
	require.Equal(t, "Resumo do dia", text)

	_, err = reg.Use(99)
	require.ErrorIs(t, err, ErrUnknownShortcut)
}

func TestResetOrigins(t *testing.T) {
	reg := New(&fakeBackend{}, zerolog.Nop(), nil)
	_, err := reg.Add(context.Background(), "a", "ex1")
	require.NoError(t, err)
	require.False(t, reg.CanPromote("ex1"))
	reg.ResetOrigins()
	require.True(t, reg.CanPromote("ex1"))
}
