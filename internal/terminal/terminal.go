// Package terminal runs a conversation over a line-oriented reader and writer.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wolfman30/leadchat-ai/internal/conversation"
)

// ChatService is the subset of conversation.Service used by the terminal.
type ChatService interface {
	Start(ctx context.Context) (*conversation.Session, conversation.Turn, error)
	Handle(ctx context.Context, sessionID string, in conversation.Input) (conversation.Turn, error)
}

// Runner drives one session from in to out.
type Runner struct {
	service ChatService
	in      *bufio.Scanner
	out     io.Writer
	widget  conversation.Widget
}

// NewRunner creates a terminal runner.
func NewRunner(service ChatService, in io.Reader, out io.Writer) *Runner {
	return &Runner{service: service, in: bufio.NewScanner(in), out: out}
}

const help = `Commands:
  /slot N      book meeting slot N
  /skip        skip the meeting
  /choose N,M  answer with the listed options
  /quit        leave the chat`

// Run starts a session and reads input until EOF, /quit or ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	session, turn, err := r.service.Start(ctx)
	if err != nil {
		return err
	}
	r.render(turn)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		switch line {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(r.out, help)
			continue
		}

		in, err := r.parse(line)
		if err != nil {
			fmt.Fprintf(r.out, "! %v\n", err)
			continue
		}
		turn, err := r.service.Handle(ctx, session.ID, in)
		switch {
		case err == nil:
			r.render(turn)
		case errors.Is(err, conversation.ErrSessionBusy):
			fmt.Fprintln(r.out, "! still working on the previous message")
		default:
			return err
		}
	}
}

// parse turns a typed line into an input, resolving /slot and /choose
// against the widget currently shown.
func (r *Runner) parse(line string) (conversation.Input, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/skip":
		return conversation.Input{Action: conversation.ActionSkipMeeting}, nil
	case "/slot":
		if r.widget.Kind != conversation.WidgetSlots {
			return conversation.Input{}, errors.New("no meeting slots offered right now")
		}
		slot, err := pick(r.widget.Options, arg)
		if err != nil {
			return conversation.Input{}, err
		}
		return conversation.Input{Action: conversation.ActionSelectSlot, Text: slot}, nil
	case "/choose":
		if r.widget.Kind != conversation.WidgetChoices {
			return conversation.Input{}, errors.New("no options offered right now")
		}
		var choices []string
		for _, part := range strings.Split(arg, ",") {
			choice, err := pick(r.widget.Options, part)
			if err != nil {
				return conversation.Input{}, err
			}
			choices = append(choices, choice)
		}
		return conversation.Input{Action: conversation.ActionMessage, Choices: choices}, nil
	}
	return conversation.Input{Action: conversation.ActionMessage, Text: line}, nil
}

func pick(options []string, raw string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > len(options) {
		return "", fmt.Errorf("pick a number between 1 and %d", len(options))
	}
	return options[n-1], nil
}

func (r *Runner) render(turn conversation.Turn) {
	for _, m := range turn.Messages {
		if m.Sender != conversation.SenderAssistant {
			continue
		}
		fmt.Fprintf(r.out, "assistant: %s\n", m.Text)
	}
	r.widget = turn.Widget
	switch turn.Widget.Kind {
	case conversation.WidgetChoices:
		for i, opt := range turn.Widget.Options {
			fmt.Fprintf(r.out, "  [%d] %s\n", i+1, opt)
		}
		fmt.Fprintln(r.out, "  (/choose N,M or type your own answer)")
	case conversation.WidgetSlots:
		for i, opt := range turn.Widget.Options {
			fmt.Fprintf(r.out, "  [%d] %s\n", i+1, opt)
		}
		label := turn.Widget.SkipLabel
		if label == "" {
			label = "skip"
		}
		fmt.Fprintf(r.out, "  (/slot N, or /skip to %s)\n", strings.ToLower(label))
	}
	if turn.Placeholder != "" {
		fmt.Fprintf(r.out, "  %s\n", turn.Placeholder)
	}
}
