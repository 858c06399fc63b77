package workspace

import (
	"context"
	"sync"

	"github.com/PabloGalante/serviceai-agent/internal/app/conversation"
	"github.com/PabloGalante/serviceai-agent/internal/app/voice"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

// ErrVoiceBusy is returned when a user already has a live voice session.
var ErrVoiceBusy = &domain.Error{Kind: domain.KindBusy, Message: "a voice session is already running"}

// ErrVoiceUnavailable is returned when no live gateway is configured.
var ErrVoiceUnavailable = &domain.Error{Kind: domain.KindVoice, Message: "voice mode is not available"}

// Tools is what a workspace needs from the tool dispatcher: batches for text
// turns, single calls for voice turns, declarations for the live session.
type Tools interface {
	conversation.ToolExecutor
	voice.ToolRunner
	Declarations() []domain.ToolDeclaration
}

type Deps struct {
	Users    domain.UserDirectory
	NewStore func() domain.ConversationStore
	Gateway  domain.ModelGateway
	Titles   domain.TitleGenerator
	Live     domain.LiveGateway // nil disables voice mode
	Tools    Tools
	Options  conversation.Options
	Voice    string
}

// Workspace is the state of one logged-in user: a conversation store and the
// session manager on top of it.
type Workspace struct {
	User          domain.User
	Conversations *conversation.Service

	mu    sync.Mutex
	voice *voice.Coordinator
}

// stopVoice ends the running voice session, if any. Its release func still
// clears the slot once Run returns.
func (w *Workspace) stopVoice() {
	if c, ok := w.Voice(); ok {
		c.Stop()
	}
}

// Voice returns the running voice session, if any.
func (w *Workspace) Voice() (*voice.Coordinator, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.voice, w.voice != nil
}

// Manager creates a workspace on first login and keeps it for the lifetime of
// the process. Nothing is persisted.
type Manager struct {
	deps Deps

	mu         sync.Mutex
	workspaces map[domain.UserID]*Workspace
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:       deps,
		workspaces: make(map[domain.UserID]*Workspace),
	}
}

// Login resolves email through the user directory and opens the workspace.
func (m *Manager) Login(ctx context.Context, email string) (*Workspace, error) {
	u, err := m.deps.Users.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, u), nil
}

// Open returns the workspace of a known user, creating it if needed.
func (m *Manager) Open(ctx context.Context, id domain.UserID) (*Workspace, error) {
	u, err := m.deps.Users.Lookup(id)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, u), nil
}

func (m *Manager) open(ctx context.Context, u domain.User) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.workspaces[u.ID]; ok {
		return ws
	}

	svc := conversation.NewService(u, m.deps.NewStore(), m.deps.Gateway, m.deps.Titles, m.deps.Tools, m.deps.Options)
	svc.NewConversation(ctx)

	ws := &Workspace{User: u, Conversations: svc}
	m.workspaces[u.ID] = ws

	observability.LoggerFromContext(ctx).Info("workspace opened", "user_id", int(u.ID))
	return ws
}

// Get returns an open workspace without creating one.
func (m *Manager) Get(id domain.UserID) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
	return ws, ok
}

// Logout stops the voice session and closes the model sessions of the user,
// then forgets the workspace.
func (m *Manager) Logout(ctx context.Context, id domain.UserID) bool {
	m.mu.Lock()
	ws, ok := m.workspaces[id]
	delete(m.workspaces, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	ws.stopVoice()
	ws.Conversations.Close()
	observability.LoggerFromContext(ctx).Info("workspace closed", "user_id", int(id))
	return true
}

// Close closes every workspace.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.workspaces
	m.workspaces = make(map[domain.UserID]*Workspace)
	m.mu.Unlock()

	for _, ws := range all {
		ws.stopVoice()
		ws.Conversations.Close()
	}
}

// VoiceAvailable reports whether a live gateway is configured.
func (m *Manager) VoiceAvailable() bool {
	return m.deps.Live != nil
}

// StartVoice builds the voice session of a conversation. Only one voice
// session per user runs at a time; the returned release func must be called
// once Run has returned.
func (m *Manager) StartVoice(
	ws *Workspace,
	id domain.ConversationID,
	source voice.AudioSource,
	sink voice.AudioSink,
	opts voice.Options,
) (*voice.Coordinator, func(), error) {
	if m.deps.Live == nil {
		return nil, nil, ErrVoiceUnavailable
	}
	if _, err := ws.Conversations.Conversation(id); err != nil {
		return nil, nil, err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.voice != nil {
		return nil, nil, ErrVoiceBusy
	}

	cfg := domain.LiveConfig{
		User:  ws.User,
		Tools: m.deps.Tools.Declarations(),
		Voice: m.deps.Voice,
	}
	player := voice.NewPlayer(sink, voice.OutputSampleRate)
	c := voice.NewCoordinator(m.deps.Live, cfg, id, ws.Conversations, m.deps.Tools, source, player, opts)
	ws.voice = c

	release := func() {
		ws.mu.Lock()
		if ws.voice == c {
			ws.voice = nil
		}
		ws.mu.Unlock()
	}
	return c, release, nil
}
