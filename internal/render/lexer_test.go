// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func r(s string) Unit { return Unit{Kind: UnitRune, Text: s} }
func tag(s string) Unit { return Unit{Kind: UnitTag, Text: s} }

// =============================================================================
// LEXER TESTS
// =============================================================================

func TestUnits(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Unit
	}{
		{
			name:  "plain",
			input: "Olá",
			want:  []Unit{r("O"), r("l"), r("á")},
		},
		{
			name:  "tag kept whole",
			input: "a<br>b",
			want:  []Unit{r("a"), tag("<br>"), r("b")},
		},
		{
			name:  "tag with attributes",
			input: `<a href="x">y</a>`,
			want:  []Unit{tag(`<a href="x">`), r("y"), tag("</a>")},
		},
		{
			name:  "unmatched open bracket is literal",
			input: "a < b",
			want:  []Unit{r("a"), r(" "), r("<"), r(" "), r("b")},
		},
		{
			name:  "unmatched bracket followed by more brackets",
			input: "1<2<3",
			want:  []Unit{r("1"), r("<"), r("2"), r("<"), r("3")},
		},
		{
			name:  "tag spans to first closing bracket",
			input: "x < y <b>z",
			want:  []Unit{r("x"), r(" "), tag("< y <b>"), r("z")},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Units(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Units(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestLexer_HoldsIncompleteTagUntilClosed(t *testing.T) {
	l := &Lexer{}
	l.Feed("ok<b")

	var got []Unit
	for {
		u, ok := l.Next()
		if !ok {
			break
		}
		got = append(got, u)
	}
	if diff := cmp.Diff([]Unit{r("o"), r("k")}, got); diff != "" {
		t.Fatalf("before '>' (-want +got):\n%s", diff)
	}
	if l.Buffered() != "<b" {
		t.Errorf("Buffered() = %q, want %q", l.Buffered(), "<b")
	}

	l.Feed(">!")
	u, ok := l.Next()
	if !ok || u != tag("<b>") {
		t.Fatalf("Next() = %v, %v; want <b> tag", u, ok)
	}
	u, ok = l.Next()
	if !ok || u != r("!") {
		t.Fatalf("Next() = %v, %v; want '!'", u, ok)
	}
	if l.Done() {
		t.Error("Done() before Close")
	}
	l.Close()
	if !l.Done() {
		t.Error("Done() = false after Close with empty buffer")
	}
}

func TestLexer_UnterminatedTagReleasedOnClose(t *testing.T) {
	l := NewLexer("5 <")
	l.Feed(" 6")

	var b strings.Builder
	for {
		u, ok := l.Next()
		if !ok {
			break
		}
		b.WriteString(u.Text)
	}
	if b.String() != "5 " {
		t.Fatalf("open input emitted %q, want %q", b.String(), "5 ")
	}

	l.Close()
	for {
		u, ok := l.Next()
		if !ok {
			break
		}
		if u.Kind != UnitRune {
			t.Errorf("unexpected tag unit %q", u.Text)
		}
		b.WriteString(u.Text)
	}
	if b.String() != "5 < 6" {
		t.Errorf("emitted %q, want %q", b.String(), "5 < 6")
	}
}

func TestLexer_FeedAfterCloseIgnored(t *testing.T) {
	l := NewLexer("a")
	l.Close()
	l.Feed("b")
	if l.Buffered() != "a" {
		t.Errorf("Buffered() = %q, want %q", l.Buffered(), "a")
	}
}

// =============================================================================
// MARKUP TESTS
// =============================================================================

func TestParseTag(t *testing.T) {
	tests := []struct {
		in   string
		want Tag
		ok   bool
	}{
		{"<br>", Tag{Name: "br"}, true},
		{"<BR/>", Tag{Name: "br"}, true},
		{"</b>", Tag{Name: "b", Closing: true}, true},
		{`<a href="x">`, Tag{Name: "a"}, true},
		{"< y <b>", Tag{}, false},
		{"<>", Tag{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTag(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseTag(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPlain(t *testing.T) {
	got := Plain("Olá!<br>Tudo <b>bem</b>?<p>x</p>a < b")
	want := "Olá!\nTudo bem?x\na < b"
	if got != want {
		t.Errorf("Plain() = %q, want %q", got, want)
	}
}

func TestPlain_NonElementBracketsKept(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2 < 3 e 5 > 4", "2 < 3 e 5 > 4"},
		{"<> vazio", "<> vazio"},
		{"a <3 b>", "a <3 b>"},
		{"x<!-- nota -->y", "xy"},
		{"<b>2 < 3 e 5 > 4</b>", "2 < 3 e 5 > 4"},
	}
	for _, tt := range tests {
		if got := Plain(tt.in); got != tt.want {
			t.Errorf("Plain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStyledWriter_NonElementBracketsKept(t *testing.T) {
	s := Styler{}
	if got := s.Render("2 < 3 e 5 > 4"); got != "2 < 3 e 5 > 4" {
		t.Errorf("Render() = %q, want %q", got, "2 < 3 e 5 > 4")
	}
	if got := s.Render("x<!-- nota -->y<br>z"); got != "xy\nz" {
		t.Errorf("Render() = %q, want %q", got, "xy\nz")
	}

	// Split across emits, as a paced reveal delivers it.
	var b strings.Builder
	w := s.Writer(&b)
	for _, u := range Units("2 < 3 e 5 > 4") {
		w.Emit(u.Text)
	}
	if b.String() != "2 < 3 e 5 > 4" {
		t.Errorf("paced output = %q", b.String())
	}
}

func TestStyledWriter_PlainTextUnchanged(t *testing.T) {
	s := DefaultStyler()
	if got := s.Render("linha 1<br>linha 2"); got != "linha 1\nlinha 2" {
		t.Errorf("Render() = %q", got)
	}
}

func TestStyledWriter_StateAcrossEmits(t *testing.T) {
	var b strings.Builder
	w := DefaultStyler().Writer(&b)
	for _, u := range []string{"<b>", "o", "k", "</b>", "!"} {
		w.Emit(u)
	}
	if w.bold != 0 {
		t.Errorf("bold depth = %d after closing tag", w.bold)
	}
	if !strings.HasSuffix(b.String(), "!") || !strings.Contains(b.String(), "o") {
		t.Errorf("unexpected output %q", b.String())
	}
}
