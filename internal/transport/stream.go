// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// streamReadSize is the size of a single body read.
const streamReadSize = 4096

// =============================================================================
// STREAM DECODER
// =============================================================================

// StreamDecoder turns arbitrarily split UTF-8 byte chunks into text.
//
// A chunk ending in the middle of a multi-byte character yields only the
// complete characters; the remaining bytes are held until the next chunk.
// Invalid sequences decode to U+FFFD.
type StreamDecoder struct {
	t       transform.Transformer
	pending []byte
	buf     []byte
}

// NewStreamDecoder creates a decoder in its initial state.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{
		t:   unicode.UTF8.NewDecoder(),
		buf: make([]byte, streamReadSize),
	}
}

// Decode consumes p and returns the text that is complete so far.
func (d *StreamDecoder) Decode(p []byte) string {
	return d.run(p, false)
}

// Flush ends the stream. Any held bytes are decoded as replacement characters.
func (d *StreamDecoder) Flush() string {
	out := d.run(nil, true)
	d.t.Reset()
	return out
}

// Pending returns the number of bytes waiting for the rest of a character.
func (d *StreamDecoder) Pending() int {
	return len(d.pending)
}

func (d *StreamDecoder) run(p []byte, atEOF bool) string {
	d.pending = append(d.pending, p...)

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.buf, d.pending, atEOF)
		out.Write(d.buf[:nDst])
		d.pending = append(d.pending[:0], d.pending[nSrc:]...)

		if errors.Is(err, transform.ErrShortDst) {
			continue
		}
		// ErrShortSrc leaves a partial character in pending.
		return out.String()
	}
}

// =============================================================================
// STREAMED ASK
// =============================================================================

// SendStreamed posts text to /ask_stream and calls onFragment with each piece
// of decoded text as it arrives. It returns the concatenation of all fragments.
//
// When the stream breaks after some text was delivered, the returned error is
// a *StreamError carrying that text.
func (c *Client) SendStreamed(ctx context.Context, text string, onFragment func(string)) (string, error) {
	if c.config.StreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.StreamTimeout)
		defer cancel()
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, c.config.Endpoints.AskStream, askRequest{Message: text})
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	emit := func(s string) {
		if s == "" {
			return
		}
		full.WriteString(s)
		if onFragment != nil {
			onFragment(s)
		}
	}

	dec := NewStreamDecoder()
	chunk := make([]byte, streamReadSize)
	fragments := 0
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			fragments++
			emit(dec.Decode(chunk[:n]))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			emit(dec.Flush())
			c.log.Warn().Err(readErr).Int("fragments", fragments).Msg("stream interrupted")
			return full.String(), &StreamError{
				Partial: full.String(),
				Err:     classifyError("ask_stream", readErr),
			}
		}
	}
	emit(dec.Flush())

	c.log.Debug().Int("fragments", fragments).Int("bytes", full.Len()).Msg("stream complete")
	return full.String(), nil
}
