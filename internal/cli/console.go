// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// console.go - Line-oriented front end over a chat session, shared by the
// chat and ask commands.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/feedback"
	"github.com/jeranaias/jarvis-tui/internal/render"
	"github.com/jeranaias/jarvis-tui/internal/session"
	"github.com/jeranaias/jarvis-tui/internal/shortcuts"
	"github.com/jeranaias/jarvis-tui/internal/timeline"
	"github.com/jeranaias/jarvis-tui/internal/util"
)

// consolePoll bounds how long a dropped event can delay output.
const consolePoll = 50 * time.Millisecond

// console prints a session to a plain writer. Revealed text is copied out
// of the timeline as it grows, so output follows the renderer's pacing.
type console struct {
	sess   *session.Session
	out    io.Writer
	styler render.Styler

	// pending is text placed in the next prompt by /use.
	pending string
}

func newConsole(sess *session.Session, out io.Writer, styler render.Styler) *console {
	return &console{sess: sess, out: out, styler: styler}
}

// =============================================================================
// SENDING
// =============================================================================

// send submits text and prints the response until its reveal has finished.
func (c *console) send(ctx context.Context, text string) (timeline.Exchange, error) {
	before := c.sess.Timeline().Len()

	done := make(chan error, 1)
	go func() {
		_, err := c.sess.Dispatch(ctx, session.Send{Text: text})
		done <- err
	}()

	tick := time.NewTicker(consolePoll)
	defer tick.Stop()

	var id string
	var sw *render.StyledWriter
	printed := 0

	flush := func() (timeline.Exchange, bool) {
		if id == "" {
			entries := c.sess.Timeline().Entries()
			if len(entries) <= before {
				return timeline.Exchange{}, false
			}
			id = entries[before].ID
		}
		ex, ok := c.sess.Timeline().Get(id)
		if !ok {
			return timeline.Exchange{}, false
		}
		if len(ex.ResponseText) > printed {
			if sw == nil {
				c.printHeader(ex)
				sw = c.styler.Writer(c.out)
			}
			sw.Emit(ex.ResponseText[printed:])
			printed = len(ex.ResponseText)
		}
		return ex, true
	}

	// The reveal may finish before Dispatch has released the session.
	finish := func(ex timeline.Exchange) (timeline.Exchange, error) {
		if done != nil {
			if err := <-done; err != nil {
				return ex, err
			}
		}
		c.printFooter(ex, sw != nil)
		return ex, nil
	}

	for {
		select {
		case <-ctx.Done():
			ex, _ := flush()
			return ex, ctx.Err()

		case err := <-done:
			if err != nil {
				return timeline.Exchange{}, err
			}
			done = nil

		case ev, ok := <-c.sess.Events():
			if !ok {
				ex, _ := flush()
				return ex, session.ErrClosed
			}
			c.handleEvent(ev)
			ex, _ := flush()
			if f, isFinish := ev.(session.ExchangeFinished); isFinish && f.Exchange.ID == id {
				return finish(ex)
			}

		case <-tick.C:
			if ex, ok := flush(); ok && c.settled(ex) {
				return finish(ex)
			}
		}
	}
}

// settled reports whether ex will not change again and its feedback
// controls, if any, are attached.
func (c *console) settled(ex timeline.Exchange) bool {
	if !ex.State.Terminal() {
		return false
	}
	if ex.State != timeline.StateComplete || ex.Interrupted {
		return true
	}
	_, attached := c.sess.Feedback().State(ex.ID)
	return attached
}

func (c *console) printHeader(ex timeline.Exchange) {
	fmt.Fprintf(c.out, "%s %s\n", AssistantStyle.Render("jarvis"), DimStyle.Render(ex.Timestamp))
}

func (c *console) printFooter(ex timeline.Exchange, wroteText bool) {
	if wroteText {
		fmt.Fprintln(c.out)
	}
	if ex.Notice != "" {
		fmt.Fprintln(c.out, WarningStyle.Render(ex.Notice))
	}
	if ex.Interrupted {
		fmt.Fprintln(c.out, DimStyle.Render("(resposta interrompida)"))
	}
}

// =============================================================================
// EVENTS
// =============================================================================

// handleEvent prints what the line front end shows of an event: toasts.
// Everything else is read back from session state when needed.
func (c *console) handleEvent(ev session.Event) {
	t, ok := ev.(session.Toast)
	if !ok {
		return
	}
	style := InfoStyle
	switch t.Level {
	case session.ToastSuccess:
		style = SuccessStyle
	case session.ToastWarning:
		style = WarningStyle
	case session.ToastError:
		style = ErrorStyle
	}
	fmt.Fprintln(c.out, style.Render("• "+t.Message))
}

// drain handles queued events without blocking.
func (c *console) drain() {
	for {
		select {
		case ev, ok := <-c.sess.Events():
			if !ok {
				return
			}
			c.handleEvent(ev)
		default:
			return
		}
	}
}

// =============================================================================
// LINE HANDLING
// =============================================================================

// errQuit ends the chat loop.
var errQuit = errors.New("quit")

// handleLine runs one line of input: a slash command or a message.
// It returns errQuit for /quit.
func (c *console) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	defer c.drain()

	if !strings.HasPrefix(line, "/") {
		_, err := c.send(ctx, line)
		if errors.Is(err, session.ErrBusy) {
			c.say(WarningStyle, "Aguarde a resposta anterior.")
			return nil
		}
		return err
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "/help", "/h", "/?":
		c.printHelp()
	case "/quit", "/q", "/exit":
		return errQuit
	case "/like":
		c.rate(ctx, true, "")
	case "/dislike":
		c.rate(ctx, false, rest)
	case "/save":
		c.save(ctx)
	case "/shortcuts", "/sc":
		c.listShortcuts()
	case "/use":
		c.use(rest)
	case "/rm", "/del":
		c.remove(ctx, rest)
	case "/stream":
		res, err := c.sess.Dispatch(ctx, session.ToggleStreaming{})
		if err != nil {
			return err
		}
		if res.Streaming {
			c.say(InfoStyle, "Respostas em streaming ativadas.")
		} else {
			c.say(InfoStyle, "Respostas completas ativadas.")
		}
	case "/clear", "/new":
		if _, err := c.sess.Dispatch(ctx, session.Clear{}); err != nil {
			return err
		}
		c.say(DimStyle, "[Nova conversa]")
	default:
		c.say(WarningStyle, fmt.Sprintf("Comando desconhecido: %s (digite /help)", cmd))
	}
	return nil
}

func (c *console) say(style lipgloss.Style, msg string) {
	fmt.Fprintln(c.out, style.Render(msg))
}

// lastExchange is the target of /like, /dislike and /save.
func (c *console) lastExchange() (timeline.Exchange, bool) {
	ex, ok := c.sess.Timeline().Last()
	if !ok {
		c.say(WarningStyle, "Nenhuma mensagem ainda.")
	}
	return ex, ok
}

func (c *console) rate(ctx context.Context, positive bool, correction string) {
	ex, ok := c.lastExchange()
	if !ok {
		return
	}
	res, err := c.sess.Dispatch(ctx, session.Rate{ExchangeID: ex.ID, Positive: positive})
	if err != nil {
		c.say(WarningStyle, feedbackMessage(err))
		return
	}
	if res.Feedback != feedback.StateAwaitingCorrection {
		return
	}

	// The line front end has no correction box: the text comes with the
	// command, and its absence dismisses the box.
	resolve := session.Correct{ExchangeID: ex.ID, Action: session.CorrectionClose}
	if correction != "" {
		resolve = session.Correct{ExchangeID: ex.ID, Action: session.CorrectionSubmit, Text: correction}
	}
	if _, err := c.sess.Dispatch(ctx, resolve); err != nil {
		c.say(WarningStyle, feedbackMessage(err))
	}
}

func feedbackMessage(err error) string {
	switch {
	case errors.Is(err, feedback.ErrAlreadyRated):
		return "Esta resposta já foi avaliada."
	case errors.Is(err, feedback.ErrNotAttached):
		return "Esta resposta não pode ser avaliada."
	case errors.Is(err, feedback.ErrCorrectionOpen), errors.Is(err, feedback.ErrAwaitingCorrect):
		return "Conclua a correção pendente primeiro."
	default:
		return err.Error()
	}
}

func (c *console) save(ctx context.Context) {
	ex, ok := c.lastExchange()
	if !ok {
		return
	}
	// Outcomes are reported by the session as toasts.
	_, _ = c.sess.Dispatch(ctx, session.SaveShortcut{ExchangeID: ex.ID})
}

// =============================================================================
// SHORTCUTS
// =============================================================================

func (c *console) listShortcuts() {
	items := c.sess.Shortcuts().Items()
	if len(items) == 0 {
		c.say(DimStyle, "Nenhum atalho salvo.")
		return
	}
	for i, sc := range items {
		fmt.Fprintf(c.out, "%s %s\n",
			DimStyle.Render(fmt.Sprintf("%2d.", i+1)),
			util.TruncateWidth(util.SingleLine(sc.Text), 72))
	}
}

// shortcutAt resolves the 1-based position shown by /shortcuts.
func (c *console) shortcutAt(arg string) (shortcuts.Shortcut, bool) {
	n, err := ParsePositiveInt(arg, "N")
	if err != nil {
		c.say(WarningStyle, "Informe o número do atalho (veja /shortcuts).")
		return shortcuts.Shortcut{}, false
	}
	items := c.sess.Shortcuts().Items()
	if int(n) > len(items) {
		c.say(WarningStyle, fmt.Sprintf("Não há atalho %d.", n))
		return shortcuts.Shortcut{}, false
	}
	return items[n-1], true
}

func (c *console) use(arg string) {
	sc, ok := c.shortcutAt(arg)
	if !ok {
		return
	}
	res, err := c.sess.Dispatch(context.Background(), session.UseShortcut{ID: sc.ID})
	if err != nil {
		c.say(WarningStyle, err.Error())
		return
	}
	c.pending = res.Input
}

func (c *console) remove(ctx context.Context, arg string) {
	sc, ok := c.shortcutAt(arg)
	if !ok {
		return
	}
	if _, err := c.sess.Dispatch(ctx, session.DeleteShortcut{ID: sc.ID}); err != nil {
		c.say(WarningStyle, err.Error())
		return
	}
	c.say(DimStyle, "Atalho removido.")
}

// takePending returns and clears the text queued by /use.
func (c *console) takePending() string {
	p := c.pending
	c.pending = ""
	return p
}

// =============================================================================
// BANNER AND HELP
// =============================================================================

func (c *console) printWelcome(user string) {
	title := "Jarvis"
	if user != "" {
		title = fmt.Sprintf("Olá, %s! Como posso ajudar?", user)
	}
	fmt.Fprintln(c.out, TitleStyle.Render(title))
	mode := "respostas completas"
	if c.sess.Streaming() {
		mode = "streaming"
	}
	fmt.Fprintln(c.out, DimStyle.Render("Modo: "+mode+". Digite /help para os comandos, /quit para sair."))
	fmt.Fprintln(c.out)
}

func (c *console) printHelp() {
	lines := [][2]string{
		{"/like", "avaliar a última resposta como útil"},
		{"/dislike [correção]", "avaliar como não útil, com correção opcional"},
		{"/save", "salvar a última mensagem como atalho"},
		{"/shortcuts", "listar atalhos"},
		{"/use N", "colocar o atalho N no prompt"},
		{"/rm N", "excluir o atalho N"},
		{"/stream", "alternar streaming"},
		{"/clear", "nova conversa"},
		{"/quit", "sair"},
	}
	for _, l := range lines {
		fmt.Fprintf(c.out, "  %s %s\n", InfoStyle.Render(fmt.Sprintf("%-22s", l[0])), DimStyle.Render(l[1]))
	}
}
