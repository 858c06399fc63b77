package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PabloGalante/serviceai-agent/internal/app/conversation"
	"github.com/PabloGalante/serviceai-agent/internal/app/feedback"
	"github.com/PabloGalante/serviceai-agent/internal/app/workspace"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

type Server struct {
	workspaces *workspace.Manager
	feedback   *feedback.Service
	upgrader   websocket.Upgrader
}

func NewServer(workspaces *workspace.Manager, feedbackSvc *feedback.Service) http.Handler {
	s := &Server{
		workspaces: workspaces,
		feedback:   feedbackSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 8192,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /login → open the workspace of a demo user (POST)
	mux.HandleFunc("/login", s.handleLogin)

	// /users/{uid}/...
	mux.HandleFunc("/users/", s.handleUser)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type loginRequest struct {
	Email string `json:"email"`
}

type userResponse struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type loginResponse struct {
	User          userResponse           `json:"user"`
	Conversations []conversationResponse `json:"conversations"`
	ActiveID      string                 `json:"active_conversation_id,omitempty"`
	Voice         bool                   `json:"voice_available"`
}

type messageResponse struct {
	ID             string    `json:"id"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	ContactSupport bool      `json:"contact_support"`
	CreatedAt      time.Time `json:"created_at"`
}

type conversationResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	IsPinned    bool              `json:"is_pinned"`
	IsUnread    bool              `json:"is_unread"`
	IsSending   bool              `json:"is_sending"`
	TurnState   string            `json:"turn_state"`
	LastMessage *messageResponse  `json:"last_message,omitempty"`
	Messages    []messageResponse `json:"messages,omitempty"`
}

type listConversationsResponse struct {
	Conversations []conversationResponse `json:"conversations"`
	ActiveID      string                 `json:"active_conversation_id,omitempty"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage *messageResponse `json:"user_message,omitempty"`
	AIMessage   messageResponse  `json:"ai_message"`
	Title       string           `json:"title,omitempty"`
	Command     bool             `json:"command"`
	Failed      bool             `json:"failed"`
	Retryable   bool             `json:"retryable,omitempty"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type feedbackResponse struct {
	Entries []domain.Feedback `json:"entries"`
	Summary feedback.Summary  `json:"summary"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleLoginPost(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /users/{uid}/logout
// /users/{uid}/feedback
// /users/{uid}/conversations
// /users/{uid}/conversations/{cid}
// /users/{uid}/conversations/{cid}/{action}
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	uid, err := strconv.Atoi(parts[0])
	if err != nil {
		badRequest(w, "invalid user id")
		return
	}

	ws, ok := s.workspaces.Get(domain.UserID(uid))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return
	}
	switch {
	case len(parts) == 2 && parts[1] == "logout":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.workspaces.Logout(r.Context(), ws.User.ID)
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 2 && parts[1] == "feedback":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleListFeedback(w, r, ws)

	case len(parts) == 2 && parts[1] == "conversations":
		switch r.Method {
		case http.MethodGet:
			s.handleListConversations(w, r, ws)
		case http.MethodPost:
			conv := ws.Conversations.NewConversation(r.Context())
			writeJSON(w, http.StatusCreated, toConversationResponse(ws, conv, true))
		default:
			methodNotAllowed(w)
		}

	case len(parts) == 3 && parts[1] == "conversations":
		cid := domain.ConversationID(parts[2])
		switch r.Method {
		case http.MethodGet:
			s.handleGetConversation(w, r, ws, cid)
		case http.MethodDelete:
			if !ws.Conversations.DeleteConversation(r.Context(), cid) {
				writeError(w, domain.ErrConversationNotFound)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w)
		}

	case len(parts) == 4 && parts[1] == "conversations":
		s.handleConversationAction(w, r, ws, domain.ConversationID(parts[2]), parts[3])

	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleConversationAction(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, cid domain.ConversationID, action string) {
	if action == "voice" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleVoice(w, r, ws, cid)
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	switch action {
	case "messages":
		s.handleSendMessage(w, r, ws, cid)
	case "rename":
		s.handleRename(w, r, ws, cid)
	case "pin":
		s.handleSimple(w, r, ws, cid, ws.Conversations.TogglePin)
	case "select":
		s.handleSimple(w, r, ws, cid, ws.Conversations.SelectConversation)
	case "feedback":
		msg, err := ws.Conversations.StartFeedback(r.Context(), cid)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMessageResponse(msg))
	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		badRequest(w, "email is required")
		return
	}

	ws, err := s.workspaces.Login(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown user"})
			return
		}
		internalError(w, err)
		return
	}

	resp := loginResponse{
		User:          toUserResponse(ws.User),
		Conversations: toConversationList(ws, ws.Conversations.ListConversations(domain.ListFilter{})),
		Voice:         s.workspaces.VoiceAvailable(),
	}
	if active, ok := ws.Conversations.ActiveConversation(); ok {
		resp.ActiveID = string(active.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	convs := ws.Conversations.ListConversations(domain.ListFilter{Query: r.URL.Query().Get("q")})

	resp := listConversationsResponse{Conversations: toConversationList(ws, convs)}
	if active, ok := ws.Conversations.ActiveConversation(); ok {
		resp.ActiveID = string(active.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, cid domain.ConversationID) {
	conv, err := ws.Conversations.Conversation(cid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationResponse(ws, conv, true))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, cid domain.ConversationID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := ws.Conversations.SendUserMessage(r.Context(), cid, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSendMessageResponse(out))
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, cid domain.ConversationID) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if err := ws.Conversations.RenameConversation(r.Context(), cid, req.Name); err != nil {
		writeError(w, err)
		return
	}
	s.handleGetConversation(w, r, ws, cid)
}

func (s *Server) handleSimple(
	w http.ResponseWriter,
	r *http.Request,
	ws *workspace.Workspace,
	cid domain.ConversationID,
	op func(ctx context.Context, id domain.ConversationID) error,
) {
	if err := op(r.Context(), cid); err != nil {
		writeError(w, err)
		return
	}
	s.handleGetConversation(w, r, ws, cid)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.feedback.UserFeedback(r.Context(), ws.User.ID, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.Feedback{}
	}
	writeJSON(w, http.StatusOK, feedbackResponse{Entries: entries, Summary: feedback.Summarize(entries)})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: int(u.ID), FullName: u.FullName, Email: u.Email}
}

func toMessageResponse(m domain.Message) messageResponse {
	text, contact := m.Display()
	return messageResponse{
		ID:             string(m.ID),
		Sender:         string(m.Sender),
		Text:           text,
		ContactSupport: contact,
		CreatedAt:      m.CreatedAt,
	}
}

func toConversationResponse(ws *workspace.Workspace, c domain.Conversation, withMessages bool) conversationResponse {
	resp := conversationResponse{
		ID:        string(c.ID),
		Name:      c.Name,
		IsPinned:  c.IsPinned,
		IsUnread:  c.IsUnread,
		IsSending: ws.Conversations.IsSending(c.ID),
		TurnState: string(ws.Conversations.TurnState(c.ID)),
	}
	if last, ok := c.LastMessage(); ok {
		m := toMessageResponse(last)
		resp.LastMessage = &m
	}
	if withMessages {
		resp.Messages = make([]messageResponse, 0, len(c.Messages))
		for _, m := range c.Messages {
			resp.Messages = append(resp.Messages, toMessageResponse(m))
		}
	}
	return resp
}

func toConversationList(ws *workspace.Workspace, convs []domain.Conversation) []conversationResponse {
	out := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversationResponse(ws, c, false))
	}
	return out
}

func toSendMessageResponse(out *conversation.SendMessageOutput) sendMessageResponse {
	resp := sendMessageResponse{
		AIMessage: toMessageResponse(out.AIMessage),
		Title:     out.Title,
		Command:   out.Command,
		Failed:    out.Failure != nil,
		Retryable: domain.IsRetryable(out.Failure),
	}
	if out.UserMessage != nil {
		m := toMessageResponse(*out.UserMessage)
		resp.UserMessage = &m
	}
	return resp
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, err error) {
	observability.Logger().Error("internal error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}

// writeError maps the error taxonomy onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		internalError(w, err)
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvalid:
		status = http.StatusBadRequest
	case domain.KindBusy:
		status = http.StatusConflict
	case domain.KindVoice:
		status = http.StatusServiceUnavailable
	case domain.KindTimeout:
		status = http.StatusGatewayTimeout
	case domain.KindTransport:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{
		"error": de.Message,
		"kind":  string(de.Kind),
	})
}
