package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

const (
	DefaultMaxToolRounds = 8
	DefaultModelTimeout  = 45 * time.Second
)

// ToolExecutor runs a batch of tool calls, one result per call.
type ToolExecutor interface {
	ExecuteAll(ctx context.Context, calls []domain.ToolCall) []domain.ToolResult
}

type Options struct {
	MaxToolRounds int
	ModelTimeout  time.Duration
}

// Service manages the conversations of one user and the model session behind
// each of them.
type Service struct {
	user    domain.User
	store   domain.ConversationStore
	gateway domain.ModelGateway
	titles  domain.TitleGenerator
	tools   ToolExecutor
	now     func() time.Time

	maxToolRounds int
	modelTimeout  time.Duration

	sessions *sessionRegistry
	turns    *turnTracker

	mu      sync.Mutex
	sending map[domain.ConversationID]bool
}

// NewService wires a session manager. titles may be nil to disable titling.
func NewService(
	user domain.User,
	store domain.ConversationStore,
	gateway domain.ModelGateway,
	titles domain.TitleGenerator,
	tools ToolExecutor,
	opts Options,
) *Service {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = DefaultModelTimeout
	}

	return &Service{
		user:          user,
		store:         store,
		gateway:       gateway,
		titles:        titles,
		tools:         tools,
		now:           time.Now,
		maxToolRounds: opts.MaxToolRounds,
		modelTimeout:  opts.ModelTimeout,
		sessions:      newSessionRegistry(),
		turns:         newTurnTracker(),
		sending:       make(map[domain.ConversationID]bool),
	}
}

func (s *Service) User() domain.User {
	return s.user
}

func (s *Service) logger(ctx context.Context, id domain.ConversationID) *slog.Logger {
	return observability.LoggerFromContext(ctx).With(
		"user_id", int(s.user.ID),
		"conversation_id", string(id),
	)
}

// ─────────────────────────────────────────────
// Conversation lifecycle
// ─────────────────────────────────────────────

// NewConversation creates and activates a conversation seeded with the greeting.
func (s *Service) NewConversation(ctx context.Context) domain.Conversation {
	conv := s.store.CreateConversation(greetingText(s.user))
	s.logger(ctx, conv.ID).Info("conversation created")
	return conv
}

// DeleteConversation removes the conversation and destroys its model session.
func (s *Service) DeleteConversation(ctx context.Context, id domain.ConversationID) bool {
	deleted := s.store.DeleteConversation(id)
	s.sessions.drop(id)
	s.turns.forget(id)
	if deleted {
		s.logger(ctx, id).Info("conversation deleted")
	}
	return deleted
}

func (s *Service) RenameConversation(ctx context.Context, id domain.ConversationID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewError(domain.KindInvalid, "conversation.Rename", "name must not be empty", nil)
	}
	if err := s.store.RenameConversation(id, name); err != nil {
		return err
	}
	s.logger(ctx, id).Info("conversation renamed", "name", name)
	return nil
}

func (s *Service) TogglePin(_ context.Context, id domain.ConversationID) error {
	return s.store.TogglePin(id)
}

func (s *Service) SelectConversation(_ context.Context, id domain.ConversationID) error {
	return s.store.SelectConversation(id)
}

func (s *Service) Conversation(id domain.ConversationID) (domain.Conversation, error) {
	conv, ok := s.store.Get(id)
	if !ok {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	return conv, nil
}

func (s *Service) ActiveConversation() (domain.Conversation, bool) {
	return s.store.Active()
}

func (s *Service) ListConversations(filter domain.ListFilter) []domain.Conversation {
	return s.store.List(filter)
}

// TurnState returns the local feedback-flow state of a conversation.
func (s *Service) TurnState(id domain.ConversationID) domain.TurnState {
	return s.turns.get(id)
}

// IsSending reports whether a send is outstanding for the conversation.
func (s *Service) IsSending(id domain.ConversationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending[id]
}

// StartFeedback appends the rating prompt and waits for a rating.
func (s *Service) StartFeedback(ctx context.Context, id domain.ConversationID) (domain.Message, error) {
	if s.IsSending(id) {
		return domain.Message{}, domain.ErrSendInProgress
	}
	msg := domain.NewMessage(FeedbackPromptText, domain.SenderAI, s.now())
	if err := s.store.AppendMessage(id, msg); err != nil {
		return domain.Message{}, err
	}
	s.turns.set(id, domain.TurnAwaitingRating)
	s.logger(ctx, id).Info("feedback flow started")
	return msg, nil
}

// AppendVoiceMessage commits a finished voice transcript. The text session of
// the conversation no longer matches the log afterwards, so it is dropped and
// the next text send re-seeds a fresh one.
func (s *Service) AppendVoiceMessage(ctx context.Context, id domain.ConversationID, sender domain.Sender, text string) (domain.Message, error) {
	msg := domain.NewMessage(text, sender, s.now())
	if err := s.store.AppendMessage(id, msg); err != nil {
		return domain.Message{}, err
	}
	s.sessions.drop(id)
	s.logger(ctx, id).Debug("voice transcript committed", "sender", string(sender))
	return msg, nil
}

// Close releases every model session.
func (s *Service) Close() {
	s.sessions.closeAll()
}

// ─────────────────────────────────────────────
// Sending
// ─────────────────────────────────────────────

type SendMessageOutput struct {
	UserMessage *domain.Message // nil for local commands
	AIMessage   domain.Message
	Title       string // title applied by this send, if any
	Command     bool   // handled locally, no model traffic

	// Failure is set when the reply is an apology. It is informational: the
	// conversation stays usable and nothing is retried.
	Failure error
}

func (s *Service) beginSend(id domain.ConversationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending[id] {
		return false
	}
	s.sending[id] = true
	return true
}

func (s *Service) endSend(id domain.ConversationID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sending, id)
}

// SendUserMessage runs one user turn. It returns an error only when the turn
// cannot start (unknown conversation, empty text, a send already in flight);
// model failures end in an apology message and are reported in Failure.
func (s *Service) SendUserMessage(ctx context.Context, id domain.ConversationID, rawText string) (*SendMessageOutput, error) {
	const op = "conversation.SendUserMessage"

	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, domain.NewError(domain.KindInvalid, op, "message text is empty", nil)
	}

	conv, ok := s.store.Get(id)
	if !ok {
		return nil, domain.ErrConversationNotFound
	}

	if !s.beginSend(id) {
		return nil, domain.ErrSendInProgress
	}
	defer s.endSend(id)

	// Re-read under the in-flight flag so the history is not stale.
	if conv, ok = s.store.Get(id); !ok {
		return nil, domain.ErrConversationNotFound
	}

	log := s.logger(ctx, id)

	if name, ok := parseRename(text); ok {
		return s.renameCommand(ctx, id, name)
	}

	log.Info("sending message")

	prior := conv.Messages
	prev, hasPrev := conv.LastMessage()
	ratingAnswer := s.turns.observeUserMessage(id, prev, hasPrev)

	userMsg := domain.NewMessage(text, domain.SenderUser, s.now())
	if err := s.store.AppendMessage(id, userMsg); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, err
	}

	titleCtx, cancelTitle := context.WithCancel(ctx)
	defer cancelTitle()

	var titleCh <-chan titleResult
	if conv.HasDefaultName() && !isGreeting(text) && !ratingAnswer {
		titleCh = s.startTitle(titleCtx, text)
	}

	out := &SendMessageOutput{UserMessage: &userMsg}

	replyText, err := s.converse(ctx, id, prior, text)
	if err != nil {
		log.Error("send failed", "error", err, "retryable", domain.IsRetryable(err))
		s.sessions.drop(id)

		apology := apologyText
		if errors.Is(err, domain.ErrToolLoopExceeded) {
			apology = toolLoopApologyText
		}
		aiMsg := domain.NewMessage(apology, domain.SenderAI, s.now())
		if appendErr := s.store.AppendMessage(id, aiMsg); appendErr != nil {
			log.Error("failed to append apology", "error", appendErr)
			return nil, appendErr
		}
		out.AIMessage = aiMsg
		out.Failure = err
		return out, nil
	}

	var title string
	if titleCh != nil {
		title = s.awaitTitle(titleCtx, titleCh)
	}

	aiMsg := domain.NewMessage(replyText, domain.SenderAI, s.now())
	if err := s.store.AppendMessage(id, aiMsg); err != nil {
		// deleted while the reply was in flight
		log.Error("failed to append ai message", "error", err)
		s.sessions.drop(id)
		return nil, err
	}
	out.AIMessage = aiMsg

	if title != "" {
		renamed, err := s.store.RenameIfDefault(id, title)
		if err != nil {
			log.Warn("failed to apply title", "error", err)
		} else if renamed {
			out.Title = title
			log.Info("conversation titled", "title", title)
		}
	}

	log.Info("send message completed")
	return out, nil
}

func (s *Service) renameCommand(ctx context.Context, id domain.ConversationID, name string) (*SendMessageOutput, error) {
	if err := s.store.RenameConversation(id, name); err != nil {
		return nil, err
	}
	ack := domain.NewMessage(renameAckText(name), domain.SenderAI, s.now())
	if err := s.store.AppendMessage(id, ack); err != nil {
		return nil, err
	}
	s.logger(ctx, id).Info("conversation renamed by command", "name", name)
	return &SendMessageOutput{AIMessage: ack, Command: true}, nil
}

// converse obtains the model session and resolves tool calls until the model
// answers with text.
func (s *Service) converse(ctx context.Context, id domain.ConversationID, prior []domain.Message, text string) (string, error) {
	log := s.logger(ctx, id)

	session, err := s.session(ctx, id, prior)
	if err != nil {
		return "", err
	}

	reply, err := s.callModel(ctx, "model.Send", func(ctx context.Context) (domain.ModelReply, error) {
		return session.Send(ctx, envelope(s.user, text))
	})
	if err != nil {
		return "", err
	}

	for round := 1; reply.HasToolCalls(); round++ {
		if round > s.maxToolRounds {
			log.Warn("tool loop exceeded", "max_rounds", s.maxToolRounds)
			return "", domain.NewError(domain.KindToolLoopExceeded, "conversation.converse",
				domain.ErrToolLoopExceeded.Message, nil)
		}

		log.Info("resolving tool calls", "round", round, "calls", len(reply.ToolCalls))
		results := s.tools.ExecuteAll(ctx, reply.ToolCalls)

		reply, err = s.callModel(ctx, "model.SendToolResults", func(ctx context.Context) (domain.ModelReply, error) {
			return session.SendToolResults(ctx, results)
		})
		if err != nil {
			return "", err
		}
	}

	return reply.Text, nil
}

// session returns the conversation's model session, seeding a new one from
// the history before this turn minus the greeting.
func (s *Service) session(ctx context.Context, id domain.ConversationID, prior []domain.Message) (domain.ModelSession, error) {
	if session, ok := s.sessions.get(id); ok {
		return session, nil
	}

	var history []domain.Message
	if len(prior) > 1 {
		history = prior[1:]
	}

	cctx, cancel := context.WithTimeout(ctx, s.modelTimeout)
	defer cancel()

	session, err := s.gateway.CreateSession(cctx, history)
	if err != nil {
		return nil, classify("model.CreateSession", err)
	}
	s.sessions.put(id, session)
	s.logger(ctx, id).Info("model session created", "history", len(history))
	return session, nil
}

func (s *Service) callModel(ctx context.Context, op string, fn func(context.Context) (domain.ModelReply, error)) (domain.ModelReply, error) {
	cctx, cancel := context.WithTimeout(ctx, s.modelTimeout)
	defer cancel()

	reply, err := fn(cctx)
	if err != nil {
		return domain.ModelReply{}, classify(op, err)
	}
	return reply, nil
}

// classify maps gateway errors onto the error taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, op, "model call timed out", err)
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.NewError(domain.KindTransport, op, "model gateway failed", err)
}
