// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// DECODER TESTS
// =============================================================================

func TestStreamDecoder_SplitMultiByte(t *testing.T) {
	// "á" is 0xC3 0xA1; split it across two chunks.
	dec := NewStreamDecoder()

	first := dec.Decode([]byte{'O', 'l', 0xC3})
	if first != "Ol" {
		t.Errorf("first chunk = %q, want %q", first, "Ol")
	}
	if dec.Pending() != 1 {
		t.Errorf("pending = %d, want 1", dec.Pending())
	}

	second := dec.Decode([]byte{0xA1, '!'})
	if second != "á!" {
		t.Errorf("second chunk = %q, want %q", second, "á!")
	}
	if got := dec.Flush(); got != "" {
		t.Errorf("flush = %q, want empty", got)
	}
}

func TestStreamDecoder_ByteAtATime(t *testing.T) {
	input := "Olá, tudo bem? 日本語 🙂"
	dec := NewStreamDecoder()

	var out strings.Builder
	for i := 0; i < len(input); i++ {
		piece := dec.Decode([]byte{input[i]})
		if !utf8.ValidString(piece) {
			t.Fatalf("fragment %q at byte %d is not valid UTF-8", piece, i)
		}
		out.WriteString(piece)
	}
	out.WriteString(dec.Flush())

	if out.String() != input {
		t.Errorf("decoded = %q, want %q", out.String(), input)
	}
}

func TestStreamDecoder_TruncatedTail(t *testing.T) {
	dec := NewStreamDecoder()
	require.Equal(t, "ok", dec.Decode([]byte{'o', 'k', 0xC3}))
	require.Equal(t, "\uFFFD", dec.Flush())
}

func TestStreamDecoder_EmptyChunk(t *testing.T) {
	dec := NewStreamDecoder()
	require.Equal(t, "", dec.Decode(nil))
	require.Equal(t, "", dec.Decode([]byte{}))
	require.Equal(t, "a", dec.Decode([]byte("a")))
}

// =============================================================================
// STREAMED ASK TESTS
// =============================================================================

func chunkedHandler(chunks [][]byte, abort bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher := w.(http.Flusher)
		for _, c := range chunks {
			w.Write(c)
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
		if abort {
			panic(http.ErrAbortHandler)
		}
	}
}

func TestSendStreamed_Fragments(t *testing.T) {
	full := "Olá, tudo bem?"
	raw := []byte(full)
	// Break inside "á" on purpose.
	chunks := [][]byte{raw[:3], raw[3:8], raw[8:]}
	client := newTestClient(t, chunkedHandler(chunks, false))

	var fragments []string
	got, err := client.SendStreamed(context.Background(), "oi", func(s string) {
		fragments = append(fragments, s)
	})
	require.NoError(t, err)
	require.Equal(t, full, got)
	require.Equal(t, full, strings.Join(fragments, ""))

	for _, f := range fragments {
		if f == "" || !utf8.ValidString(f) {
			t.Errorf("invalid fragment %q", f)
		}
	}
}

func TestSendStreamed_InterruptedKeepsPartial(t *testing.T) {
	client := newTestClient(t, chunkedHandler([][]byte{[]byte("Ol"), []byte("á, tu")}, true))

	var shown strings.Builder
	_, err := client.SendStreamed(context.Background(), "oi", func(s string) {
		shown.WriteString(s)
	})
	require.Error(t, err)

	partial := PartialText(err)
	require.Equal(t, "Olá, tu", partial)
	require.Equal(t, partial, shown.String())
}

func TestSendStreamed_StatusError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	called := false
	_, err := client.SendStreamed(context.Background(), "oi", func(string) { called = true })
	require.True(t, IsType(err, ErrTypeStatus), "got %v", err)
	require.False(t, called)
	require.Empty(t, PartialText(err))
}
