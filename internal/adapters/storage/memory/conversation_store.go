package memory

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

// Snapshot is an immutable view of a user's conversations. Conversations are
// ordered newest first.
type Snapshot struct {
	Conversations []domain.Conversation
	ActiveID      domain.ConversationID
}

func (s *Snapshot) index(id domain.ConversationID) int {
	for i := range s.Conversations {
		if s.Conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// ConversationStore is an in-memory, copy-on-write domain.ConversationStore.
// Writers are serialized by mu and publish a fresh Snapshot; readers load the
// current one without locking.
type ConversationStore struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
	now  func() time.Time
}

var _ domain.ConversationStore = (*ConversationStore)(nil)

func NewConversationStore() *ConversationStore {
	s := &ConversationStore{now: time.Now}
	s.snap.Store(&Snapshot{})
	return s
}

// Snapshot returns the current consistent view.
func (s *ConversationStore) Snapshot() *Snapshot {
	return s.snap.Load()
}

// mutate copies the current snapshot, applies fn and publishes the result.
// fn must replace, never modify in place, any conversation it changes.
func (s *ConversationStore) mutate(fn func(next *Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	next := &Snapshot{
		Conversations: make([]domain.Conversation, len(cur.Conversations)),
		ActiveID:      cur.ActiveID,
	}
	copy(next.Conversations, cur.Conversations)

	if err := fn(next); err != nil {
		return err
	}
	s.snap.Store(next)
	return nil
}

func (s *ConversationStore) CreateConversation(greeting string) domain.Conversation {
	conv := domain.Conversation{
		ID:   domain.ConversationID(uuid.NewString()),
		Name: domain.DefaultConversationName,
		Messages: []domain.Message{
			domain.NewMessage(greeting, domain.SenderAI, s.now()),
		},
	}

	_ = s.mutate(func(next *Snapshot) error {
		next.Conversations = append([]domain.Conversation{conv}, next.Conversations...)
		next.ActiveID = conv.ID
		return nil
	})
	return conv
}

func (s *ConversationStore) DeleteConversation(id domain.ConversationID) bool {
	deleted := false
	_ = s.mutate(func(next *Snapshot) error {
		i := next.index(id)
		if i < 0 {
			return nil
		}
		next.Conversations = append(next.Conversations[:i:i], next.Conversations[i+1:]...)
		if next.ActiveID == id {
			next.ActiveID = ""
			if len(next.Conversations) > 0 {
				next.ActiveID = next.Conversations[0].ID
			}
		}
		deleted = true
		return nil
	})
	return deleted
}

func (s *ConversationStore) RenameConversation(id domain.ConversationID, name string) error {
	return s.mutate(func(next *Snapshot) error {
		i := next.index(id)
		if i < 0 {
			return domain.ErrConversationNotFound
		}
		next.Conversations[i].Name = name
		return nil
	})
}

// RenameIfDefault renames the conversation only while it still has the
// placeholder name.
func (s *ConversationStore) RenameIfDefault(id domain.ConversationID, name string) (bool, error) {
	renamed := false
	err := s.mutate(func(next *Snapshot) error {
		i := next.index(id)
		if i < 0 {
			return domain.ErrConversationNotFound
		}
		if !next.Conversations[i].HasDefaultName() {
			return nil
		}
		next.Conversations[i].Name = name
		renamed = true
		return nil
	})
	return renamed, err
}

func (s *ConversationStore) TogglePin(id domain.ConversationID) error {
	return s.mutate(func(next *Snapshot) error {
		i := next.index(id)
		if i < 0 {
			return domain.ErrConversationNotFound
		}
		next.Conversations[i].IsPinned = !next.Conversations[i].IsPinned
		return nil
	})
}

func (s *ConversationStore) SelectConversation(id domain.ConversationID) error {
	return s.mutate(func(next *Snapshot) error {
		i := next.index(id)
		if i < 0 {
			return domain.ErrConversationNotFound
		}
		next.ActiveID = id
		next.Conversations[i].IsUnread = false
		return nil
	})
}

// AppendMessage adds msg to the conversation log. Only ai messages landing in
// a conversation that is not active mark it unread.
func (s *ConversationStore) AppendMessage(id domain.ConversationID, msg domain.Message) error {
	return s.mutate(func(next *Snapshot) error {
		i := next.index(id)
		if i < 0 {
			return domain.ErrConversationNotFound
		}
		conv := next.Conversations[i]

		msgs := make([]domain.Message, len(conv.Messages), len(conv.Messages)+1)
		copy(msgs, conv.Messages)
		conv.Messages = append(msgs, msg)

		switch {
		case next.ActiveID == id:
			conv.IsUnread = false
		case msg.Sender == domain.SenderAI:
			conv.IsUnread = true
		}

		next.Conversations[i] = conv
		return nil
	})
}

func (s *ConversationStore) Get(id domain.ConversationID) (domain.Conversation, bool) {
	snap := s.snap.Load()
	i := snap.index(id)
	if i < 0 {
		return domain.Conversation{}, false
	}
	return snap.Conversations[i], true
}

func (s *ConversationStore) Active() (domain.Conversation, bool) {
	snap := s.snap.Load()
	if snap.ActiveID == "" {
		return domain.Conversation{}, false
	}
	return s.Get(snap.ActiveID)
}

// List returns the conversations whose name contains the query
// (case-insensitive), pinned first, otherwise in store order.
func (s *ConversationStore) List(filter domain.ListFilter) []domain.Conversation {
	snap := s.snap.Load()
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	out := make([]domain.Conversation, 0, len(snap.Conversations))
	for _, c := range snap.Conversations {
		if query != "" && !strings.Contains(strings.ToLower(c.Name), query) {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsPinned && !out[j].IsPinned
	})
	return out
}
