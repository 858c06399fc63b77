package conversation

import (
	"sync"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

// turnTracker keeps the local view of the feedback flow per conversation.
// The model decides the actual flow; this only drives local decisions.
type turnTracker struct {
	mu     sync.Mutex
	states map[domain.ConversationID]domain.TurnState
}

func newTurnTracker() *turnTracker {
	return &turnTracker{states: make(map[domain.ConversationID]domain.TurnState)}
}

func (t *turnTracker) get(id domain.ConversationID) domain.TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[id]; ok {
		return st
	}
	return domain.TurnNormal
}

func (t *turnTracker) set(id domain.ConversationID, st domain.TurnState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st == domain.TurnNormal {
		delete(t.states, id)
		return
	}
	t.states[id] = st
}

func (t *turnTracker) forget(id domain.ConversationID) {
	t.set(id, domain.TurnNormal)
}

// observeUserMessage advances the state for a new user message and reports
// whether that message answers the rating prompt. The description that
// follows is an ordinary message for titling. prev is the message that
// preceded it; a rating prompt there counts even when the state was lost.
func (t *turnTracker) observeUserMessage(id domain.ConversationID, prev domain.Message, hasPrev bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[id]
	if !ok {
		st = domain.TurnNormal
	}
	if st == domain.TurnNormal && hasPrev && isRatingPrompt(prev) {
		st = domain.TurnAwaitingRating
	}

	switch st {
	case domain.TurnAwaitingRating:
		t.states[id] = domain.TurnAwaitingDescription
		return true
	case domain.TurnAwaitingDescription:
		delete(t.states, id)
		return false
	default:
		return false
	}
}
