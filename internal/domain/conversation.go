package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one entry in a conversation log (user or ai). Messages are
// immutable once appended.
type Message struct {
	ID        MessageID
	Text      string
	Sender    Sender
	CreatedAt Timestamp
}

// Display returns the text to render and whether the contact-support
// affordance should be shown next to it.
func (m Message) Display() (string, bool) {
	if !strings.Contains(m.Text, ContactSupportToken) {
		return m.Text, false
	}
	return strings.TrimSpace(strings.ReplaceAll(m.Text, ContactSupportToken, "")), true
}

// Conversation is one chat with its ordered, append-only message log.
type Conversation struct {
	ID       ConversationID
	Name     string
	Messages []Message
	IsPinned bool
	IsUnread bool
}

// LastMessage returns the newest message, if any.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// HasDefaultName reports whether the conversation still carries the placeholder name.
func (c Conversation) HasDefaultName() bool {
	return c.Name == DefaultConversationName
}

var greetingPattern = regexp.MustCompile(`(?i)^(hi|hello|hey|how are you|what's up|good (morning|afternoon|evening))\s*[.?!]?$`)

// IsGreeting reports whether text is only a salutation. Greetings never name
// a conversation.
func IsGreeting(text string) bool {
	return greetingPattern.MatchString(strings.TrimSpace(text))
}

// ListFilter narrows a conversation listing. An empty query matches everything.
type ListFilter struct {
	Query string
}

// TurnState is the client-side view of where a conversation is in the
// feedback flow. The model stays the authority on the conversational flow;
// this is only used for local decisions such as titling.
type TurnState string

const (
	TurnNormal              TurnState = "normal"
	TurnAwaitingRating      TurnState = "awaiting_rating"
	TurnAwaitingDescription TurnState = "awaiting_description"
)

// NewMessage builds a message with a time-ordered id.
func NewMessage(text string, sender Sender, at time.Time) Message {
	return Message{
		ID:        newMessageID(),
		Text:      text,
		Sender:    sender,
		CreatedAt: at,
	}
}

func newMessageID() MessageID {
	id, err := uuid.NewV7()
	if err != nil {
		return MessageID(uuid.NewString())
	}
	return MessageID(id.String())
}
