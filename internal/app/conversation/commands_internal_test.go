package conversation

import (
	"testing"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

func TestParseRename(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`/rename "Foo Bar"`, "Foo Bar", true},
		{`/rename 'single'`, "single", true},
		{`/rename   spaced out  `, "spaced out", true},
		{`/rename " padded "`, "padded", true},
		{`/rename`, "", false},
		{`/rename ""`, `""`, true},
		{`/rename "  "`, "", false},
		{`/renamefoo`, "", false},
		{`please /rename x`, "", false},
	}
	for _, tc := range cases {
		got, ok := parseRename(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseRename(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsGreeting(t *testing.T) {
	for _, in := range []string{"hi", "Hello!", "hey ?", "How are you?", "what's up", "GOOD EVENING."} {
		if !isGreeting(in) {
			t.Fatalf("expected %q to be a greeting", in)
		}
	}
	for _, in := range []string{"hi, where is my order", "hello there", "good night", "hey!!"} {
		if isGreeting(in) {
			t.Fatalf("expected %q not to be a greeting", in)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	cases := map[string]string{
		`"Order Status"`: "Order Status",
		"Refund Help":    "Refund Help",
		"New Chat":       "",
		`"new chat"`:     "",
		"   ":            "",
	}
	for in, want := range cases {
		if got := normalizeTitle(in); got != want {
			t.Fatalf("normalizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTurnTrackerFallsBackToRatingPrompt(t *testing.T) {
	tr := newTurnTracker()
	prompt := domain.Message{Sender: domain.SenderAI, Text: FeedbackPromptText}

	if !tr.observeUserMessage("c", prompt, true) {
		t.Fatalf("expected the rating answer to count as feedback")
	}
	if got := tr.get("c"); got != domain.TurnAwaitingDescription {
		t.Fatalf("expected awaiting description, got %s", got)
	}

	other := domain.Message{Sender: domain.SenderUser, Text: FeedbackPromptText}
	if tr.observeUserMessage("d", other, true) {
		t.Fatalf("only ai messages can be rating prompts")
	}
}
