package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
)

// AudioSource is the capture device. ReadFrame returns PCM16 mono at
// InputSampleRate and must return when ctx is done or the source is closed.
type AudioSource interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	Close() error
}

// TranscriptSink receives finished voice turns.
type TranscriptSink interface {
	AppendVoiceMessage(ctx context.Context, id domain.ConversationID, sender domain.Sender, text string) (domain.Message, error)
}

// ToolRunner executes one tool call. It must not fail or panic.
type ToolRunner interface {
	Execute(ctx context.Context, call domain.ToolCall) domain.ToolResult
}

type Options struct {
	// OnStatus is called on every status change. Connection failures are
	// reported here and never written to the conversation.
	OnStatus func(Status)
	// OnCommit is called after a transcript is committed to the conversation.
	OnCommit func(domain.Message)
}

// Coordinator runs one voice session for one conversation.
type Coordinator struct {
	gateway        domain.LiveGateway
	cfg            domain.LiveConfig
	conversationID domain.ConversationID
	transcripts    TranscriptSink
	tools          ToolRunner
	source         AudioSource
	player         *Player
	opts           Options

	muted atomic.Bool

	statusMu sync.Mutex
	status   Status

	// Only touched by the receive loop.
	input  strings.Builder
	output strings.Builder

	sendMu      sync.Mutex
	toolWG      sync.WaitGroup
	closeSource sync.Once

	stopMu  sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

func NewCoordinator(
	gateway domain.LiveGateway,
	cfg domain.LiveConfig,
	conversationID domain.ConversationID,
	transcripts TranscriptSink,
	tools ToolRunner,
	source AudioSource,
	player *Player,
	opts Options,
) *Coordinator {
	return &Coordinator{
		gateway:        gateway,
		cfg:            cfg,
		conversationID: conversationID,
		transcripts:    transcripts,
		tools:          tools,
		source:         source,
		player:         player,
		opts:           opts,
		status:         StatusConnecting,
	}
}

// SetMuted suppresses outbound audio without closing the session.
func (c *Coordinator) SetMuted(muted bool) {
	c.muted.Store(muted)
}

func (c *Coordinator) Muted() bool {
	return c.muted.Load()
}

func (c *Coordinator) Status() Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}

func (c *Coordinator) setStatus(st Status) {
	c.statusMu.Lock()
	c.status = st
	c.statusMu.Unlock()

	if c.opts.OnStatus != nil {
		c.opts.OnStatus(st)
	}
}

// Stop ends the session from outside Run. Run returns as if its context had
// been cancelled. Calling Stop before Run makes Run return at once.
func (c *Coordinator) Stop() {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
}

// bindStop registers cancel for Stop and reports false if Stop already ran.
func (c *Coordinator) bindStop(cancel context.CancelFunc) bool {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	c.cancel = cancel
	return !c.stopped
}

// Run connects, streams audio both ways and returns when the stream closes,
// fails, Stop is called, or ctx is done. The audio source and the player are
// always released, even when the connection never opened.
func (c *Coordinator) Run(ctx context.Context) error {
	log := observability.LoggerFromContext(ctx).With(
		slog.String("conversation_id", string(c.conversationID)),
	)

	defer c.release(log)

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	if !c.bindStop(stop) {
		log.Info("voice session stopped before connecting")
		c.setStatus(StatusClosed)
		return nil
	}

	c.setStatus(StatusConnecting)
	stream, err := c.gateway.Connect(ctx, c.cfg)
	if err != nil {
		log.Error("voice connect failed", "error", err)
		c.setStatus(StatusError)
		return domain.NewError(domain.KindVoice, "voice.Connect", "could not open live session", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Warn("failed to close live stream", "error", err)
		}
	}()

	c.setStatus(StatusConnected)
	log.Info("voice session connected")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pumpErr := make(chan error, 1)
	go func() {
		err := c.pump(runCtx, stream)
		if err != nil {
			cancel()
		}
		pumpErr <- err
	}()

	recvErr := c.receive(runCtx, stream, log)

	cancel()
	c.releaseSource(log)
	audioErr := <-pumpErr
	c.toolWG.Wait()

	switch {
	case audioErr != nil:
		log.Error("audio capture failed", "error", audioErr)
		c.setStatus(StatusError)
		return domain.NewError(domain.KindVoice, "voice.Capture", "audio capture failed", audioErr)
	case recvErr != nil && ctx.Err() == nil:
		log.Error("voice session failed", "error", recvErr)
		c.setStatus(StatusError)
		return domain.NewError(domain.KindVoice, "voice.Receive", "live session failed", recvErr)
	default:
		log.Info("voice session closed")
		c.setStatus(StatusClosed)
		return nil
	}
}

// pump forwards captured frames until ctx is done. Mute is checked per frame.
func (c *Coordinator) pump(ctx context.Context, stream domain.LiveStream) error {
	for {
		frame, err := c.source.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if c.muted.Load() || len(frame) == 0 {
			continue
		}

		c.sendMu.Lock()
		err = stream.SendAudio(ctx, frame)
		c.sendMu.Unlock()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Coordinator) receive(ctx context.Context, stream domain.LiveStream, log *slog.Logger) error {
	for {
		ev, err := stream.Receive(ctx)
		if err != nil {
			return err
		}

		switch ev.Kind {
		case domain.LiveTranscript:
			if ev.Direction == domain.TranscriptInput {
				c.input.WriteString(ev.Text)
			} else {
				c.output.WriteString(ev.Text)
			}

		case domain.LiveTurnComplete:
			c.commit(ctx, &c.input, domain.SenderUser, log)
			c.commit(ctx, &c.output, domain.SenderAI, log)

		case domain.LiveAudio:
			if _, err := c.player.Enqueue(ev.Audio); err != nil {
				log.Warn("failed to schedule audio", "error", err)
			}

		case domain.LiveInterrupted:
			c.player.Interrupt()
			// the interrupted utterance is final up to here
			c.commit(ctx, &c.output, domain.SenderAI, log)

		case domain.LiveToolCall:
			if ev.ToolCall != nil {
				c.runTool(ctx, stream, *ev.ToolCall, log)
			}

		case domain.LiveClosed:
			if c.input.Len() > 0 || c.output.Len() > 0 {
				log.Debug("dropping unfinished turn on close")
			}
			return nil
		}
	}
}

func (c *Coordinator) commit(ctx context.Context, buf *strings.Builder, sender domain.Sender, log *slog.Logger) {
	text := strings.TrimSpace(buf.String())
	buf.Reset()
	if text == "" {
		return
	}

	msg, err := c.transcripts.AppendVoiceMessage(ctx, c.conversationID, sender, text)
	if err != nil {
		log.Error("failed to commit transcript", "error", err, "sender", string(sender))
		return
	}
	if c.opts.OnCommit != nil {
		c.opts.OnCommit(msg)
	}
}

// runTool resolves a call without blocking the audio stream; each result is
// sent back on its own.
func (c *Coordinator) runTool(ctx context.Context, stream domain.LiveStream, call domain.ToolCall, log *slog.Logger) {
	c.toolWG.Add(1)
	go func() {
		defer c.toolWG.Done()

		res := c.tools.Execute(ctx, call)

		c.sendMu.Lock()
		err := stream.SendToolResult(ctx, res)
		c.sendMu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("failed to send tool result", "error", err, "tool", string(call.Name))
		}
	}()
}

func (c *Coordinator) releaseSource(log *slog.Logger) {
	c.closeSource.Do(func() {
		if err := c.source.Close(); err != nil {
			log.Warn("failed to close audio source", "error", err)
		}
	})
}

func (c *Coordinator) release(log *slog.Logger) {
	c.releaseSource(log)
	if err := c.player.Close(); err != nil {
		log.Warn("failed to close audio player", "error", err)
	}
}
