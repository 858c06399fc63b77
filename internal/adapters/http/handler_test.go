package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/PabloGalante/serviceai-agent/internal/adapters/http"
	"github.com/PabloGalante/serviceai-agent/internal/adapters/llm"
	"github.com/PabloGalante/serviceai-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/serviceai-agent/internal/app/feedback"
	"github.com/PabloGalante/serviceai-agent/internal/app/tools"
	"github.com/PabloGalante/serviceai-agent/internal/app/workspace"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	mock := llm.NewMockGateway()
	business := memory.NewBusinessStore(memory.DefaultDataset())

	manager := workspace.NewManager(workspace.Deps{
		Users:    memory.NewUserDirectory(memory.DemoUsers()),
		NewStore: func() domain.ConversationStore { return memory.NewConversationStore() },
		Gateway:  mock,
		Titles:   mock,
		Tools:    tools.NewDispatcher(business, nil),
	})
	t.Cleanup(manager.Close)

	return httpadapter.NewServer(manager, feedback.NewService(business))
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

type loginBody struct {
	User struct {
		ID int `json:"id"`
	} `json:"user"`
	ActiveID string `json:"active_conversation_id"`
	Voice    bool   `json:"voice_available"`
}

func login(t *testing.T, srv http.Handler, email string) loginBody {
	t.Helper()

	w := do(t, srv, http.MethodPost, "/login", fmt.Sprintf(`{"email":%q}`, email))
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var out loginBody
	decode(t, w, &out)
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	out := login(t, srv, "asha.kumar@example.com")
	if out.User.ID == 0 || out.ActiveID == "" {
		t.Fatalf("unexpected login response %+v", out)
	}
	if out.Voice {
		t.Fatalf("voice should be unavailable without a live gateway")
	}

	if w := do(t, srv, http.MethodPost, "/login", `{"email":"nobody@example.com"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an unknown user, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodPost, "/login", `{"email":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty email, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/login", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestRequiresLogin(t *testing.T) {
	srv := newTestServer(t)

	if w := do(t, srv, http.MethodGet, "/users/1/conversations", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/users/abc/conversations", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSendMessage(t *testing.T) {
	srv := newTestServer(t)
	user := login(t, srv, "rahul.singh@example.com")
	base := fmt.Sprintf("/users/%d/conversations/%s", user.User.ID, user.ActiveID)

	w := do(t, srv, http.MethodPost, base+"/messages", `{"text":"What is the status of order 2?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var sent struct {
		UserMessage struct {
			Text string `json:"text"`
		} `json:"user_message"`
		AIMessage struct {
			Text string `json:"text"`
		} `json:"ai_message"`
		Title  string `json:"title"`
		Failed bool   `json:"failed"`
	}
	decode(t, w, &sent)
	if sent.Failed || sent.Title == "" || sent.UserMessage.Text != "What is the status of order 2?" {
		t.Fatalf("unexpected send response %+v", sent)
	}

	w = do(t, srv, http.MethodPost, base+"/messages", `{"text":"get me a real person"}`)
	var handoff struct {
		AIMessage struct {
			Text           string `json:"text"`
			ContactSupport bool   `json:"contact_support"`
		} `json:"ai_message"`
	}
	decode(t, w, &handoff)
	if !handoff.AIMessage.ContactSupport || bytes.Contains([]byte(handoff.AIMessage.Text), []byte(domain.ContactSupportToken)) {
		t.Fatalf("expected the support marker to be stripped and flagged, got %+v", handoff)
	}

	if w := do(t, srv, http.MethodPost, base+"/messages", `{"text":"   "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank text, got %d", w.Code)
	}
	missing := fmt.Sprintf("/users/%d/conversations/nope/messages", user.User.ID)
	if w := do(t, srv, http.MethodPost, missing, `{"text":"hi"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestConversationLifecycle(t *testing.T) {
	srv := newTestServer(t)
	user := login(t, srv, "admin@example.com")
	list := fmt.Sprintf("/users/%d/conversations", user.User.ID)

	w := do(t, srv, http.MethodPost, list, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var created struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsPinned bool   `json:"is_pinned"`
	}
	decode(t, w, &created)

	w = do(t, srv, http.MethodPost, list+"/"+created.ID+"/rename", `{"name":"Refund question"}`)
	decode(t, w, &created)
	if created.Name != "Refund question" {
		t.Fatalf("rename not applied: %+v", created)
	}

	w = do(t, srv, http.MethodPost, list+"/"+created.ID+"/pin", "")
	decode(t, w, &created)
	if !created.IsPinned {
		t.Fatalf("expected the conversation to be pinned")
	}

	w = do(t, srv, http.MethodGet, list+"?q=refund", "")
	var found struct {
		Conversations []struct {
			ID string `json:"id"`
		} `json:"conversations"`
	}
	decode(t, w, &found)
	if len(found.Conversations) != 1 || found.Conversations[0].ID != created.ID {
		t.Fatalf("unexpected search result %+v", found)
	}

	if w := do(t, srv, http.MethodDelete, list+"/"+created.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodDelete, list+"/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on a second delete, got %d", w.Code)
	}
}

func TestFeedbackFlow(t *testing.T) {
	srv := newTestServer(t)
	user := login(t, srv, "asha.kumar@example.com")
	conv := fmt.Sprintf("/users/%d/conversations/%s", user.User.ID, user.ActiveID)

	w := do(t, srv, http.MethodPost, conv+"/feedback", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, conv, "")
	var got struct {
		TurnState string `json:"turn_state"`
	}
	decode(t, w, &got)
	if got.TurnState != string(domain.TurnAwaitingRating) {
		t.Fatalf("expected awaiting rating, got %q", got.TurnState)
	}

	w = do(t, srv, http.MethodGet, fmt.Sprintf("/users/%d/feedback?limit=5", user.User.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, fmt.Sprintf("/users/%d/feedback?limit=x", user.User.ID), ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad limit, got %d", w.Code)
	}
}

func TestVoiceUnavailable(t *testing.T) {
	srv := newTestServer(t)
	user := login(t, srv, "asha.kumar@example.com")

	w := do(t, srv, http.MethodGet, fmt.Sprintf("/users/%d/conversations/%s/voice", user.User.ID, user.ActiveID), "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t)
	user := login(t, srv, "asha.kumar@example.com")

	if w := do(t, srv, http.MethodPost, fmt.Sprintf("/users/%d/logout", user.User.ID), ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, fmt.Sprintf("/users/%d/conversations", user.User.ID), ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}
