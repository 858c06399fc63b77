package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/PabloGalante/serviceai-agent/internal/adapters/llm"
	"github.com/PabloGalante/serviceai-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/serviceai-agent/internal/app/tools"
	"github.com/PabloGalante/serviceai-agent/internal/app/workspace"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

func newTestREPL(t *testing.T) (*repl, *bytes.Buffer) {
	t.Helper()

	mock := llm.NewMockGateway()
	m := workspace.NewManager(workspace.Deps{
		Users:    memory.NewUserDirectory(memory.DemoUsers()),
		NewStore: func() domain.ConversationStore { return memory.NewConversationStore() },
		Gateway:  mock,
		Titles:   mock,
		Tools:    tools.NewDispatcher(memory.NewBusinessStore(memory.DefaultDataset()), nil),
	})
	t.Cleanup(m.Close)

	ws, err := m.Login(context.Background(), "rahul.singh@example.com")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	var out bytes.Buffer
	return newREPL(ws, &out), &out
}

func TestREPLSendAndRename(t *testing.T) {
	r, out := newTestREPL(t)
	ctx := context.Background()

	r.handle(ctx, "where is order 3?")
	if !strings.Contains(out.String(), "ThunderPro Cable") {
		t.Fatalf("expected the order in the reply, got %q", out.String())
	}

	out.Reset()
	r.handle(ctx, "/rename Cables")
	if !strings.Contains(out.String(), `Chat renamed to "Cables".`) {
		t.Fatalf("unexpected rename output %q", out.String())
	}
}

func TestREPLListSwitchDelete(t *testing.T) {
	r, out := newTestREPL(t)
	ctx := context.Background()
	first := r.current

	r.handle(ctx, "/new")
	if r.current == first {
		t.Fatalf("expected /new to switch chats")
	}

	out.Reset()
	r.handle(ctx, "/list")
	if strings.Count(out.String(), "New Chat") != 2 {
		t.Fatalf("unexpected listing %q", out.String())
	}

	r.handle(ctx, "/switch 2")
	if r.current != first {
		t.Fatalf("expected to be back on the first chat")
	}

	out.Reset()
	r.handle(ctx, "/switch 9")
	if !strings.Contains(out.String(), "usage") {
		t.Fatalf("expected usage for an out of range index, got %q", out.String())
	}

	r.handle(ctx, "/delete")
	if r.current == first || r.current == "" {
		t.Fatalf("expected another chat to become current")
	}
	r.handle(ctx, "/delete")
	if r.current == "" {
		t.Fatalf("deleting the last chat should open a fresh one")
	}
}

func TestREPLFeedbackAndQuit(t *testing.T) {
	r, out := newTestREPL(t)
	ctx := context.Background()

	r.handle(ctx, "/feedback")
	if !strings.Contains(out.String(), "how would you rate") {
		t.Fatalf("expected the rating prompt, got %q", out.String())
	}
	if !r.handle(ctx, "/quit") {
		t.Fatalf("/quit should end the session")
	}
}
