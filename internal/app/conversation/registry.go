package conversation

import (
	"io"
	"sync"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

// sessionRegistry owns the model sessions of one Service: at most one per
// conversation, never shared.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[domain.ConversationID]domain.ModelSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[domain.ConversationID]domain.ModelSession)}
}

func (r *sessionRegistry) get(id domain.ConversationID) (domain.ModelSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *sessionRegistry) put(id domain.ConversationID, s domain.ModelSession) {
	r.mu.Lock()
	old, ok := r.sessions[id]
	r.sessions[id] = s
	r.mu.Unlock()

	if ok && old != s {
		closeSession(old)
	}
}

// drop forgets and closes the session of id, if any.
func (r *sessionRegistry) drop(id domain.ConversationID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		closeSession(s)
	}
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[domain.ConversationID]domain.ModelSession)
	r.mu.Unlock()

	for _, s := range sessions {
		closeSession(s)
	}
}

// Sessions are not required to hold resources; close the ones that do.
func closeSession(s domain.ModelSession) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}
