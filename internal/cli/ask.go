// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question.

package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/jeranaias/jarvis-tui/internal/render"
	"github.com/jeranaias/jarvis-tui/internal/session"
	"github.com/jeranaias/jarvis-tui/internal/timeline"
)

// RunAsk runs the "ask" command.
func RunAsk(args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("question", `jarvis ask "Qual a previsão do tempo?"`)
	}

	sink := LogToFile
	if args.Debug && !args.JSON {
		sink = LogToConsole
	}
	app, err := NewApp(args, sink)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := app.Session(ctx, func(o *session.Options) {
		o.Streaming = o.Streaming || args.Stream
		if args.JSON {
			// Nothing is shown while revealing, so pacing only adds latency.
			o.Interval = time.Microsecond
			o.StreamMode = render.ModePassThrough
		}
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	out := app.Stdout
	if args.JSON {
		out = io.Discard
	}
	ex, err := ask(ctx, sess, out, args.Query)
	if err != nil {
		return err
	}

	if args.JSON {
		data := AskData{
			Question:  ex.UserText,
			Response:  ex.ResponseText,
			Timestamp: ex.Timestamp,
			Streamed:  ex.Streamed,
			State:     ex.State.String(),
			Notice:    ex.Notice,
		}
		if err := NewJSONResponse("ask", data).Print(app.Stdout); err != nil {
			return err
		}
	}
	if ex.State == timeline.StateFailed {
		return ErrResponseFailed
	}
	return nil
}

// ask sends question and prints the reply to out.
func ask(ctx context.Context, sess *session.Session, out io.Writer, question string) (timeline.Exchange, error) {
	con := newConsole(sess, out, responseStyler())
	defer con.drain()
	return con.send(ctx, question)
}
