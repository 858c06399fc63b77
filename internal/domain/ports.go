package domain

import "context"

// ConversationStore holds the conversations of one user. Mutations are
// copy-on-write so readers always see a consistent snapshot.
type ConversationStore interface {
	CreateConversation(greeting string) Conversation
	DeleteConversation(id ConversationID) bool
	RenameConversation(id ConversationID, name string) error
	RenameIfDefault(id ConversationID, name string) (bool, error)
	TogglePin(id ConversationID) error
	SelectConversation(id ConversationID) error
	AppendMessage(id ConversationID, msg Message) error

	Get(id ConversationID) (Conversation, bool)
	Active() (Conversation, bool)
	List(filter ListFilter) []Conversation
}

// ModelReply is either final assistant text or a batch of tool calls.
type ModelReply struct {
	Text      string
	ToolCalls []ToolCall
}

// HasToolCalls reports whether the model asked for local work before answering.
func (r ModelReply) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// ModelGateway opens stateful sessions with the hosted model.
type ModelGateway interface {
	CreateSession(ctx context.Context, prior []Message) (ModelSession, error)
}

// ModelSession is bound to exactly one conversation.
type ModelSession interface {
	Send(ctx context.Context, prompt string) (ModelReply, error)
	SendToolResults(ctx context.Context, results []ToolResult) (ModelReply, error)
}

// TitleGenerator proposes a short conversation title from its first message.
// An empty title means "no title".
type TitleGenerator interface {
	ProposeTitle(ctx context.Context, seed string) (string, error)
}

// LiveConfig configures a voice session.
type LiveConfig struct {
	User              User
	SystemInstruction string
	Tools             []ToolDeclaration
	Voice             string
}

type LiveEventKind string

const (
	LiveTranscript   LiveEventKind = "transcript"
	LiveAudio        LiveEventKind = "audio"
	LiveTurnComplete LiveEventKind = "turn_complete"
	LiveInterrupted  LiveEventKind = "interrupted"
	LiveToolCall     LiveEventKind = "tool_call"
	LiveClosed       LiveEventKind = "closed"
)

type TranscriptDirection string

const (
	TranscriptInput  TranscriptDirection = "input"
	TranscriptOutput TranscriptDirection = "output"
)

// LiveEvent is one signal received from a live voice stream.
type LiveEvent struct {
	Kind      LiveEventKind
	Direction TranscriptDirection
	Text      string
	Audio     []byte // PCM16 mono
	ToolCall  *ToolCall
}

// LiveGateway opens persistent voice sessions. A successful Connect is the
// "open" signal of the stream.
type LiveGateway interface {
	Connect(ctx context.Context, cfg LiveConfig) (LiveStream, error)
}

type LiveStream interface {
	Receive(ctx context.Context) (LiveEvent, error)
	SendAudio(ctx context.Context, pcm []byte) error
	SendToolResult(ctx context.Context, result ToolResult) error
	Close() error
}

// BusinessData is the backend the tools query. "Not found" is reported with a
// nil record or an empty slice, never with an error.
type BusinessData interface {
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	ListUserOrders(ctx context.Context, userID UserID) ([]Order, error)
	FindProducts(ctx context.Context, query string) ([]Product, error)
	SubmitFeedback(ctx context.Context, fb Feedback) (Ack, error)
	ListUserTransactions(ctx context.Context, userID UserID) ([]Transaction, error)
	ContactHumanSupport(ctx context.Context, req HandoffRequest) (Ack, error)

	ListFeedback(ctx context.Context, userID UserID, limit int) ([]Feedback, error)
}

// HandoffNotifier tells the support team that a user asked for a human.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, req HandoffRequest) error
}

// UserDirectory is the identity collaborator.
type UserDirectory interface {
	Lookup(id UserID) (User, error)
	FindByEmail(email string) (User, error)
	List() []User
}
