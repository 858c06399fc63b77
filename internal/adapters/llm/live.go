package llm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"google.golang.org/genai"
)

const liveInputMIME = "audio/pcm;rate=16000"

// Connect implements domain.LiveGateway. Voice sessions always answer with
// audio and transcribe both directions.
func (g *GeminiGateway) Connect(ctx context.Context, cfg domain.LiveConfig) (domain.LiveStream, error) {
	model := g.cfg.LiveModel
	if model == "" {
		return nil, fmt.Errorf("no live model configured")
	}

	instruction := cfg.SystemInstruction
	if instruction == "" {
		instruction = LiveInstruction(cfg.User)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = g.cfg.Voice
	}

	lc := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		SystemInstruction:        genai.NewContentFromText(instruction, genai.RoleUser),
		Tools:                    genaiTools(cfg.Tools),
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if voice != "" {
		lc.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		}
	}

	session, err := g.client.Live.Connect(ctx, model, lc)
	if err != nil {
		return nil, fmt.Errorf("gemini live connect: %w", err)
	}

	s := &liveStream{
		session: session,
		events:  make(chan domain.LiveEvent, 32),
		done:    make(chan struct{}),
	}
	go s.read()
	return s, nil
}

// liveStream adapts a genai live session. The session's Receive blocks
// without a context, so a reader goroutine turns server messages into
// events on a channel.
type liveStream struct {
	session *genai.Session

	events chan domain.LiveEvent
	err    error // set before events is closed

	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

func (s *liveStream) read() {
	defer close(s.events)

	for {
		msg, err := s.session.Receive()
		if err != nil {
			if !s.closed.Load() {
				s.err = err
				return
			}
			s.emit(domain.LiveEvent{Kind: domain.LiveClosed})
			return
		}
		for _, ev := range expand(msg) {
			if !s.emit(ev) {
				return
			}
		}
	}
}

func (s *liveStream) emit(ev domain.LiveEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// expand splits one server message into events, in the order transcripts,
// turn completion, audio, interruption, tool calls.
func expand(msg *genai.LiveServerMessage) []domain.LiveEvent {
	if msg == nil {
		return nil
	}
	var out []domain.LiveEvent

	if sc := msg.ServerContent; sc != nil {
		if t := sc.InputTranscription; t != nil && t.Text != "" {
			out = append(out, domain.LiveEvent{Kind: domain.LiveTranscript, Direction: domain.TranscriptInput, Text: t.Text})
		}
		if t := sc.OutputTranscription; t != nil && t.Text != "" {
			out = append(out, domain.LiveEvent{Kind: domain.LiveTranscript, Direction: domain.TranscriptOutput, Text: t.Text})
		}
		if sc.TurnComplete {
			out = append(out, domain.LiveEvent{Kind: domain.LiveTurnComplete})
		}
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
					out = append(out, domain.LiveEvent{Kind: domain.LiveAudio, Audio: p.InlineData.Data})
				}
			}
		}
		if sc.Interrupted {
			out = append(out, domain.LiveEvent{Kind: domain.LiveInterrupted})
		}
	}

	if tc := msg.ToolCall; tc != nil {
		for _, call := range toolCalls(tc.FunctionCalls) {
			call := call
			out = append(out, domain.LiveEvent{Kind: domain.LiveToolCall, ToolCall: &call})
		}
	}
	return out
}

func (s *liveStream) Receive(ctx context.Context) (domain.LiveEvent, error) {
	select {
	case <-ctx.Done():
		return domain.LiveEvent{}, ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			if s.err != nil {
				return domain.LiveEvent{}, fmt.Errorf("gemini live receive: %w", s.err)
			}
			return domain.LiveEvent{Kind: domain.LiveClosed}, nil
		}
		return ev, nil
	}
}

func (s *liveStream) SendAudio(ctx context.Context, pcm []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: liveInputMIME, Data: pcm},
	})
	if err != nil {
		return fmt.Errorf("gemini live send audio: %w", err)
	}
	return nil
}

func (s *liveStream) SendToolResult(ctx context.Context, result domain.ToolResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{functionResponse(result)},
	})
	if err != nil {
		return fmt.Errorf("gemini live send tool response: %w", err)
	}
	return nil
}

func (s *liveStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		err = s.session.Close()
	})
	return err
}
