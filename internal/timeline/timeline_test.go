// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package timeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExchangeLifecycle(t *testing.T) {
	var changes []State
	tl := New(func(ex Exchange) { changes = append(changes, ex.State) })

	ex := tl.Append("oi")
	require.Equal(t, StatePending, ex.State)
	require.NotEmpty(t, ex.ID)

	require.NoError(t, tl.BeginStreaming(ex.ID, false))
	require.NoError(t, tl.AppendText(ex.ID, "Ol"))
	require.NoError(t, tl.AppendText(ex.ID, "á!"))
	require.NoError(t, tl.SetTimestamp(ex.ID, "10:42"))
	require.NoError(t, tl.Complete(ex.ID, false))

	got, ok := tl.Get(ex.ID)
	require.True(t, ok)
	require.Equal(t, "Olá!", got.ResponseText)
	require.Equal(t, "10:42", got.Timestamp)
	require.Equal(t, StateComplete, got.State)

	require.Equal(t, StatePending, changes[0])
	require.Equal(t, StateComplete, changes[len(changes)-1])
}

func TestFrozenAfterTerminal(t *testing.T) {
	tl := New(nil)
	ex := tl.Append("oi")
	require.NoError(t, tl.BeginStreaming(ex.ID, true))
	require.NoError(t, tl.AppendText(ex.ID, "Olá, tu"))
	require.NoError(t, tl.Fail(ex.ID, "Conexão perdida."))

	err := tl.AppendText(ex.ID, "do bem?")
	if !errors.Is(err, ErrBadTransition) {
		t.Fatalf("AppendText after fail: got %v, want ErrBadTransition", err)
	}
	require.ErrorIs(t, tl.Complete(ex.ID, false), ErrBadTransition)

	got, _ := tl.Get(ex.ID)
	require.Equal(t, "Olá, tu", got.ResponseText)
	require.Equal(t, "Conexão perdida.", got.Notice)
	require.Equal(t, StateFailed, got.State)
}

func TestAppendRequiresStreaming(t *testing.T) {
	tl := New(nil)
	ex := tl.Append("oi")
	require.ErrorIs(t, tl.AppendText(ex.ID, "x"), ErrBadTransition)
	require.NoError(t, tl.AppendText(ex.ID, ""))
	require.ErrorIs(t, tl.AppendText("nope", "x"), ErrUnknownExchange)
}

func TestEntriesOrderAndReset(t *testing.T) {
	tl := New(nil)
	a := tl.Append("primeira")
	b := tl.Append("segunda")

	entries := tl.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, a.ID, entries[0].ID)
	require.Equal(t, b.ID, entries[1].ID)

	last, ok := tl.Last()
	require.True(t, ok)
	require.Equal(t, b.ID, last.ID)

	entries[0].UserText = "mutated"
	got, _ := tl.Get(a.ID)
	require.Equal(t, "primeira", got.UserText)

	tl.Reset()
	require.Equal(t, 0, tl.Len())
	_, ok = tl.Last()
	require.False(t, ok)
}

func TestConcurrentWriters(t *testing.T) {
	tl := New(nil)
	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		ex := tl.Append("q")
		ids[i] = ex.ID
		require.NoError(t, tl.BeginStreaming(ex.ID, true))
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			w := tl.Writer(id)
			for i := 0; i < 50; i++ {
				w("x")
			}
		}(id)
	}
	wg.Wait()
	for _, id := range ids {
		ex, _ := tl.Get(id)
		if len(ex.ResponseText) != 50 {
			t.Errorf("exchange %s has %d chars, want 50", id, len(ex.ResponseText))
		}
	}
}
