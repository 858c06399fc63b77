package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PabloGalante/serviceai-agent/internal/app/workspace"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

const helpText = `commands:
  /new              start a new chat
  /list [query]     list chats, optionally filtered by name
  /switch N         open chat N from the last listing
  /pin              pin or unpin the current chat
  /delete           delete the current chat
  /feedback         rate your experience
  /rename NAME      rename the current chat
  /quit             leave
anything else is sent to the assistant`

// repl drives one workspace from a line-oriented terminal.
type repl struct {
	ws      *workspace.Workspace
	out     io.Writer
	current domain.ConversationID
	listed  []domain.ConversationID
}

func newREPL(ws *workspace.Workspace, out io.Writer) *repl {
	r := &repl{ws: ws, out: out}
	if c, ok := ws.Conversations.ActiveConversation(); ok {
		r.current = c.ID
	}
	return r
}

// printHistory writes every message of the current chat.
func (r *repl) printHistory() {
	conv, err := r.ws.Conversations.Conversation(r.current)
	if err != nil {
		return
	}
	fmt.Fprintf(r.out, "── %s ──\n", conv.Name)
	for _, m := range conv.Messages {
		r.printMessage(m)
	}
}

func (r *repl) printMessage(m domain.Message) {
	text, contact := m.Display()
	who := "you"
	if m.Sender == domain.SenderAI {
		who = "assistant"
	}
	fmt.Fprintf(r.out, "%s: %s\n", who, text)
	if contact {
		fmt.Fprintln(r.out, "  [a human agent has been notified]")
	}
}

// handle runs one input line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Fprintln(r.out, helpText)

	case "/new":
		conv := r.ws.Conversations.NewConversation(ctx)
		r.current = conv.ID
		r.printHistory()

	case "/list":
		convs := r.ws.Conversations.ListConversations(domain.ListFilter{Query: arg})
		r.listed = r.listed[:0]
		for i, c := range convs {
			r.listed = append(r.listed, c.ID)
			marker := " "
			if c.ID == r.current {
				marker = "*"
			}
			pin := ""
			if c.IsPinned {
				pin = " (pinned)"
			}
			fmt.Fprintf(r.out, "%s %d. %s%s\n", marker, i+1, c.Name, pin)
		}
		if len(convs) == 0 {
			fmt.Fprintln(r.out, "no chats found")
		}

	case "/switch":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(r.listed) {
			fmt.Fprintln(r.out, "usage: /switch N (see /list)")
			return false
		}
		id := r.listed[n-1]
		if err := r.ws.Conversations.SelectConversation(ctx, id); err != nil {
			r.printError(err)
			return false
		}
		r.current = id
		r.printHistory()

	case "/pin":
		if err := r.ws.Conversations.TogglePin(ctx, r.current); err != nil {
			r.printError(err)
		}

	case "/delete":
		r.ws.Conversations.DeleteConversation(ctx, r.current)
		r.current = ""
		if c, ok := r.ws.Conversations.ActiveConversation(); ok {
			r.current = c.ID
		} else {
			r.current = r.ws.Conversations.NewConversation(ctx).ID
		}
		r.printHistory()

	case "/feedback":
		msg, err := r.ws.Conversations.StartFeedback(ctx, r.current)
		if err != nil {
			r.printError(err)
			return false
		}
		r.printMessage(msg)

	default:
		// /rename and free text go through the send path
		out, err := r.ws.Conversations.SendUserMessage(ctx, r.current, line)
		if err != nil {
			r.printError(err)
			return false
		}
		r.printMessage(out.AIMessage)
		if out.Title != "" {
			fmt.Fprintf(r.out, "  [chat titled %q]\n", out.Title)
		}
	}
	return false
}

func (r *repl) printError(err error) {
	fmt.Fprintf(r.out, "error: %v\n", err)
}
