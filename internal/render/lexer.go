// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"unicode/utf8"
)

// =============================================================================
// UNITS
// =============================================================================

// UnitKind distinguishes plain characters from markup tags.
type UnitKind int

const (
	// UnitRune is a single character.
	UnitRune UnitKind = iota
	// UnitTag is a complete "<...>" sequence.
	UnitTag
)

// Unit is the smallest piece of text the renderer reveals at once.
type Unit struct {
	Kind UnitKind
	Text string
}

// =============================================================================
// LEXER
// =============================================================================

type lexMode int

const (
	modeLiteral lexMode = iota
	modeTag
)

// Lexer splits incrementally supplied text into units.
//
// In literal mode every character is its own unit. A '<' switches to tag
// mode, where the lexer looks for the next '>'. If one is found the whole
// "<...>" becomes a single tag unit. If input is closed without one, the '<'
// is emitted as a plain character and lexing resumes right after it.
// While input is still open an unterminated tag is held back.
//
// The zero value is ready to use. Lexer is not safe for concurrent use.
type Lexer struct {
	buf    string
	pos    int
	mode   lexMode
	scan   int  // next byte to search for '>' while in tag mode
	closed bool // no more input will arrive

	// noTagFrom marks the offset after which no '>' exists in closed input.
	noTagFrom int
	noTag     bool
}

// NewLexer returns a lexer pre-loaded with text.
func NewLexer(text string) *Lexer {
	l := &Lexer{}
	l.Feed(text)
	return l
}

// Feed appends text. Feeding a closed lexer has no effect.
func (l *Lexer) Feed(text string) {
	if l.closed || text == "" {
		return
	}
	if l.pos > 0 {
		l.buf = l.buf[l.pos:]
		l.scan -= l.pos
		l.pos = 0
	}
	l.buf += text
}

// Close marks the end of input.
func (l *Lexer) Close() {
	l.closed = true
}

// Closed reports whether Close was called.
func (l *Lexer) Closed() bool {
	return l.closed
}

// Done reports whether input is closed and every unit has been returned.
func (l *Lexer) Done() bool {
	return l.closed && l.pos >= len(l.buf)
}

// Buffered returns the text not yet returned as units.
func (l *Lexer) Buffered() string {
	return l.buf[l.pos:]
}

// Next returns the next complete unit. It returns false when more input is
// needed or the input is exhausted.
func (l *Lexer) Next() (Unit, bool) {
	for l.pos < len(l.buf) {
		switch l.mode {
		case modeLiteral:
			r, size := utf8.DecodeRuneInString(l.buf[l.pos:])
			if r == '<' && !(l.noTag && l.pos >= l.noTagFrom) {
				l.mode = modeTag
				l.scan = l.pos + 1
				continue
			}
			u := Unit{Kind: UnitRune, Text: l.buf[l.pos : l.pos+size]}
			l.pos += size
			return u, true

		case modeTag:
			if i := strings.IndexByte(l.buf[l.scan:], '>'); i >= 0 {
				end := l.scan + i + 1
				u := Unit{Kind: UnitTag, Text: l.buf[l.pos:end]}
				l.pos = end
				l.mode = modeLiteral
				return u, true
			}
			l.scan = len(l.buf)
			if !l.closed {
				return Unit{}, false
			}
			// Unterminated: the '<' is literal text.
			l.noTag = true
			l.noTagFrom = l.pos
			l.pos++
			l.mode = modeLiteral
			return Unit{Kind: UnitRune, Text: "<"}, true
		}
	}
	return Unit{}, false
}

// Units lexes a complete string.
func Units(text string) []Unit {
	l := NewLexer(text)
	l.Close()
	var units []Unit
	for {
		u, ok := l.Next()
		if !ok {
			return units
		}
		units = append(units, u)
	}
}
