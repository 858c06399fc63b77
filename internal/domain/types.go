package domain

import (
	"strings"
	"time"
)

type ConversationID string
type MessageID string
type UserID int

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// DefaultConversationName is the placeholder name of a conversation that has
// not been titled yet.
const DefaultConversationName = "New Chat"

// ContactSupportToken is emitted by the model after a human handoff. It is an
// out-of-band marker for the UI and never shown to the user.
const ContactSupportToken = "[CONTACT_SUPPORT]"

type Timestamp = time.Time

// User is the authenticated customer. It is supplied by the identity directory
// and never created by the core.
type User struct {
	ID       UserID `json:"id" yaml:"id"`
	FullName string `json:"full_name" yaml:"full_name"`
	Email    string `json:"email" yaml:"email"`
}

// FirstName returns the first word of the user's full name.
func (u User) FirstName() string {
	fields := strings.Fields(u.FullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
