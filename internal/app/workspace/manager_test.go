package workspace_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PabloGalante/serviceai-agent/internal/adapters/llm"
	"github.com/PabloGalante/serviceai-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/serviceai-agent/internal/app/tools"
	"github.com/PabloGalante/serviceai-agent/internal/app/voice"
	"github.com/PabloGalante/serviceai-agent/internal/app/workspace"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

type nopLive struct{}

func (nopLive) Connect(context.Context, domain.LiveConfig) (domain.LiveStream, error) {
	return nil, errors.New("not used")
}

// idleLive opens streams that stay silent until their context ends.
type idleLive struct{}

func (idleLive) Connect(context.Context, domain.LiveConfig) (domain.LiveStream, error) {
	return idleStream{}, nil
}

type idleStream struct{}

func (idleStream) Receive(ctx context.Context) (domain.LiveEvent, error) {
	<-ctx.Done()
	return domain.LiveEvent{}, ctx.Err()
}
func (idleStream) SendAudio(context.Context, []byte) error                { return nil }
func (idleStream) SendToolResult(context.Context, domain.ToolResult) error { return nil }
func (idleStream) Close() error                                            { return nil }

type nopSource struct{}

func (nopSource) ReadFrame(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (nopSource) Close() error { return nil }

type nopSink struct{}

func (nopSink) Schedule([]byte, time.Duration) (voice.BufferID, error) { return 1, nil }
func (nopSink) Stop(voice.BufferID)                                   {}
func (nopSink) Now() time.Duration                                    { return 0 }
func (nopSink) Close() error                                          { return nil }

func newManager(live domain.LiveGateway) *workspace.Manager {
	mock := llm.NewMockGateway()
	return workspace.NewManager(workspace.Deps{
		Users:    memory.NewUserDirectory(memory.DemoUsers()),
		NewStore: func() domain.ConversationStore { return memory.NewConversationStore() },
		Gateway:  mock,
		Titles:   mock,
		Live:     live,
		Tools:    tools.NewDispatcher(memory.NewBusinessStore(memory.DefaultDataset()), nil),
	})
}

func TestLoginCreatesGreetingConversation(t *testing.T) {
	m := newManager(nil)
	ctx := context.Background()

	ws, err := m.Login(ctx, "  ASHA.KUMAR@example.com ")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if ws.User.FullName != "Asha Kumar" {
		t.Fatalf("unexpected user %+v", ws.User)
	}

	convs := ws.Conversations.ListConversations(domain.ListFilter{})
	if len(convs) != 1 || len(convs[0].Messages) != 1 {
		t.Fatalf("expected one greeting conversation, got %+v", convs)
	}
	if convs[0].Messages[0].Text != "Hey Asha, how can I help you? 😊" {
		t.Fatalf("unexpected greeting %q", convs[0].Messages[0].Text)
	}

	again, err := m.Open(ctx, ws.User.ID)
	if err != nil || again != ws {
		t.Fatalf("expected the same workspace on a second open")
	}
}

func TestLoginUnknownUser(t *testing.T) {
	_, err := newManager(nil).Login(context.Background(), "nobody@example.com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestOrderQuestionRunsThroughTools(t *testing.T) {
	m := newManager(nil)
	ctx := context.Background()

	ws, _ := m.Login(ctx, "rahul.singh@example.com")
	conv, _ := ws.Conversations.ActiveConversation()

	out, err := ws.Conversations.SendUserMessage(ctx, conv.ID, "What is the status of order 2?")
	if err != nil {
		t.Fatalf("SendUserMessage: %v", err)
	}
	if out.Failure != nil {
		t.Fatalf("unexpected failure %v", out.Failure)
	}
	want := "Order for XG-900 Gaming Mouse placed on 20-10-2025 is scheduled for delivery on 22-10-2025."
	if out.AIMessage.Text != want {
		t.Fatalf("unexpected reply %q", out.AIMessage.Text)
	}
	if out.Title == "" {
		t.Fatalf("expected the conversation to be titled")
	}

	out, _ = ws.Conversations.SendUserMessage(ctx, conv.ID, "I want to talk to a human")
	text, contact := out.AIMessage.Display()
	if !contact || !strings.HasPrefix(text, "Sure Rahul,") {
		t.Fatalf("unexpected handoff reply %q", out.AIMessage.Text)
	}
}

func TestLogout(t *testing.T) {
	m := newManager(nil)
	ctx := context.Background()

	ws, _ := m.Login(ctx, "admin@example.com")
	if !m.Logout(ctx, ws.User.ID) {
		t.Fatalf("expected logout to succeed")
	}
	if _, ok := m.Get(ws.User.ID); ok {
		t.Fatalf("workspace should be gone")
	}
	if m.Logout(ctx, ws.User.ID) {
		t.Fatalf("second logout should report false")
	}
}

func TestStartVoice(t *testing.T) {
	ctx := context.Background()

	if _, _, err := newManager(nil).StartVoice(&workspace.Workspace{}, "x", nopSource{}, nopSink{}, voice.Options{}); !errors.Is(err, workspace.ErrVoiceUnavailable) {
		t.Fatalf("expected ErrVoiceUnavailable, got %v", err)
	}

	m := newManager(nopLive{})
	ws, _ := m.Login(ctx, "asha.kumar@example.com")
	conv, _ := ws.Conversations.ActiveConversation()

	if _, _, err := m.StartVoice(ws, "missing", nopSource{}, nopSink{}, voice.Options{}); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}

	c, release, err := m.StartVoice(ws, conv.ID, nopSource{}, nopSink{}, voice.Options{})
	if err != nil || c == nil {
		t.Fatalf("StartVoice: %v", err)
	}
	if _, _, err := m.StartVoice(ws, conv.ID, nopSource{}, nopSink{}, voice.Options{}); !errors.Is(err, workspace.ErrVoiceBusy) {
		t.Fatalf("expected ErrVoiceBusy, got %v", err)
	}

	release()
	if _, ok := ws.Voice(); ok {
		t.Fatalf("voice session should be released")
	}
}

func TestLogoutStopsVoiceSession(t *testing.T) {
	ctx := context.Background()
	m := newManager(idleLive{})
	ws, _ := m.Login(ctx, "asha.kumar@example.com")
	conv, _ := ws.Conversations.ActiveConversation()

	c, release, err := m.StartVoice(ws, conv.ID, nopSource{}, nopSink{}, voice.Options{})
	if err != nil {
		t.Fatalf("StartVoice: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		defer release()
		done <- c.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.Status() != voice.StatusConnected {
		if time.Now().After(deadline) {
			t.Fatalf("voice session never connected")
		}
		time.Sleep(time.Millisecond)
	}

	if !m.Logout(ctx, ws.User.ID) {
		t.Fatalf("Logout should report an open workspace")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("voice session ended with %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("voice session kept running after logout")
	}
	if c.Status() != voice.StatusClosed {
		t.Fatalf("expected a closed session, got %s", c.Status())
	}
}
