// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// TAGS
// =============================================================================

// Tag is a parsed markup tag.
type Tag struct {
	Name    string // lower-case element name
	Closing bool   // "</name>"
}

// ParseTag parses the text of a tag unit. Tags that are not element-like
// (comments, "< 3 >") return ok=false.
func ParseTag(text string) (Tag, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "<"), ">")
	inner = strings.TrimSuffix(strings.TrimRight(inner, " \t\n"), "/")

	var t Tag
	if strings.HasPrefix(inner, "/") {
		t.Closing = true
		inner = inner[1:]
	}
	if i := strings.IndexAny(inner, " \t\n"); i >= 0 {
		inner = inner[:i]
	}
	if inner == "" || !isLetter(rune(inner[0])) {
		return Tag{}, false
	}
	for _, r := range inner {
		if !isLetter(r) && !(r >= '0' && r <= '9') {
			return Tag{}, false
		}
	}
	t.Name = strings.ToLower(inner)
	return t, true
}

// isDeclaration reports comments and doctypes, which are never shown.
func isDeclaration(text string) bool {
	return strings.HasPrefix(text, "<!") || strings.HasPrefix(text, "<?")
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// =============================================================================
// STYLER
// =============================================================================

// Styler turns response markup into terminal text. <br> and block closers
// become newlines; <b>, <i> and <code> are styled; other tags are hidden.
// The stored response text is never altered, only its presentation.
type Styler struct {
	Bold   lipgloss.Style
	Italic lipgloss.Style
	Code   lipgloss.Style
	Link   lipgloss.Style
}

// DefaultStyler returns a Styler with plain emphasis styles.
func DefaultStyler() Styler {
	return Styler{
		Bold:   lipgloss.NewStyle().Bold(true),
		Italic: lipgloss.NewStyle().Italic(true),
		Code:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Link:   lipgloss.NewStyle().Underline(true),
	}
}

// Render styles a complete response.
func (s Styler) Render(text string) string {
	var b strings.Builder
	st := s.Writer(&b)
	st.Emit(text)
	return b.String()
}

// Plain strips markup, keeping line breaks. Bracketed text that is not an
// element is kept.
func Plain(text string) string {
	var b strings.Builder
	for _, u := range Units(text) {
		if u.Kind == UnitRune {
			b.WriteString(u.Text)
			continue
		}
		t, ok := ParseTag(u.Text)
		if !ok {
			if !isDeclaration(u.Text) {
				b.WriteString(u.Text)
			}
			continue
		}
		if breaksLine(t) {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func breaksLine(t Tag) bool {
	switch t.Name {
	case "br":
		return true
	case "p", "div", "li", "ul", "ol", "h1", "h2", "h3", "h4":
		return t.Closing
	}
	return false
}

// StyledWriter is a Sink that styles revealed units and writes them to w.
// Emphasis state carries across Emit calls.
type StyledWriter struct {
	s      Styler
	w      io.Writer
	bold   int
	italic int
	code   int
	link   int
}

// Writer returns a StyledWriter over w.
func (s Styler) Writer(w io.Writer) *StyledWriter {
	return &StyledWriter{s: s, w: w}
}

// Emit implements Sink. text must hold whole units, which is what render
// jobs deliver.
func (sw *StyledWriter) Emit(text string) {
	var run strings.Builder
	flush := func() {
		if run.Len() == 0 {
			return
		}
		_, _ = io.WriteString(sw.w, sw.style(run.String()))
		run.Reset()
	}

	for _, u := range Units(text) {
		if u.Kind == UnitRune {
			run.WriteString(u.Text)
			continue
		}
		t, ok := ParseTag(u.Text)
		if !ok {
			// Not an element, e.g. "< 3 e 5 >": shown as typed.
			if !isDeclaration(u.Text) {
				run.WriteString(u.Text)
			}
			continue
		}
		if breaksLine(t) {
			run.WriteByte('\n')
			continue
		}
		flush()
		sw.toggle(t)
	}
	flush()
}

func (sw *StyledWriter) toggle(t Tag) {
	delta := 1
	if t.Closing {
		delta = -1
	}
	adj := func(n *int) {
		*n += delta
		if *n < 0 {
			*n = 0
		}
	}
	switch t.Name {
	case "b", "strong":
		adj(&sw.bold)
	case "i", "em":
		adj(&sw.italic)
	case "code", "pre":
		adj(&sw.code)
	case "a":
		adj(&sw.link)
	}
}

// style applies the active emphasis line by line so lipgloss does not pad
// multi-line runs.
func (sw *StyledWriter) style(text string) string {
	var styles []lipgloss.Style
	if sw.bold > 0 {
		styles = append(styles, sw.s.Bold)
	}
	if sw.italic > 0 {
		styles = append(styles, sw.s.Italic)
	}
	if sw.code > 0 {
		styles = append(styles, sw.s.Code)
	}
	if sw.link > 0 {
		styles = append(styles, sw.s.Link)
	}
	if len(styles) == 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		for _, st := range styles {
			line = st.Render(line)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
