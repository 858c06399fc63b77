package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PabloGalante/serviceai-agent/internal/app/voice"
	"github.com/PabloGalante/serviceai-agent/internal/app/workspace"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

const (
	voiceReadLimit    = 1 << 20
	voiceWriteTimeout = 5 * time.Second
	voiceFrameBuffer  = 64
)

// Client → server text frames. Binary frames carry 16 kHz PCM16 capture.
type voiceControl struct {
	Type  string `json:"type"`
	Muted bool   `json:"muted,omitempty"`
}

// Server → client text frames. An "audio" header is always followed by one
// binary frame with 24 kHz PCM16.
type voiceEvent struct {
	Type     string           `json:"type"`
	Status   string           `json:"status,omitempty"`
	BufferID uint64           `json:"buffer_id,omitempty"`
	AtMS     int64            `json:"at_ms,omitempty"`
	Message  *messageResponse `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// /users/{uid}/conversations/{cid}/voice
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, cid domain.ConversationID) {
	log := observability.LoggerFromContext(r.Context()).With("conversation_id", string(cid))

	out := &wsWriter{}
	source := &wsSource{frames: make(chan []byte, voiceFrameBuffer)}
	sink := &wsSink{out: out, start: time.Now()}

	coord, release, err := s.workspaces.StartVoice(ws, cid, source, sink, voice.Options{
		OnStatus: func(st voice.Status) {
			_ = out.writeJSON(voiceEvent{Type: "status", Status: string(st)})
		},
		OnCommit: func(m domain.Message) {
			msg := toMessageResponse(m)
			_ = out.writeJSON(voiceEvent{Type: "transcript", Message: &msg})
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	defer release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("voice upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(voiceReadLimit)
	out.attach(conn)

	// The request context is not cancelled by a hijacked connection going
	// away, so the reader owns cancellation.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	go func() {
		defer cancel()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug("voice client read ended", "error", err)
				}
				return
			}
			switch kind {
			case websocket.BinaryMessage:
				source.push(ctx, data)
			case websocket.TextMessage:
				var ctl voiceControl
				if err := json.Unmarshal(data, &ctl); err != nil {
					log.Debug("ignoring malformed voice control", "error", err)
					continue
				}
				switch ctl.Type {
				case "mute":
					coord.SetMuted(ctl.Muted)
				case "stop":
					return
				}
			}
		}
	}()

	if err := coord.Run(ctx); err != nil {
		_ = out.writeJSON(voiceEvent{Type: "error", Error: err.Error()})
	}
	out.close()
}

// wsWriter serializes writes to the connection. gorilla/websocket allows one
// concurrent writer.
type wsWriter struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (w *wsWriter) attach(conn *websocket.Conn) {
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
}

func (w *wsWriter) write(kind int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil || w.closed {
		return errWriterClosed
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(voiceWriteTimeout))
	return w.conn.WriteMessage(kind, data)
}

func (w *wsWriter) writeJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.write(websocket.TextMessage, raw)
}

func (w *wsWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil || w.closed {
		return
	}
	w.closed = true
	_ = w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(voiceWriteTimeout),
	)
}

var errWriterClosed = errors.New("voice connection closed")

// wsSource hands captured frames to the coordinator.
type wsSource struct {
	frames chan []byte
}

// push drops the frame when the coordinator falls behind.
func (s *wsSource) push(ctx context.Context, frame []byte) {
	select {
	case s.frames <- frame:
	case <-ctx.Done():
	default:
	}
}

func (s *wsSource) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *wsSource) Close() error { return nil }

// wsSink forwards scheduled playback to the client, which owns the clock of
// its audio device. Now is an approximation measured from connection start.
type wsSink struct {
	out   *wsWriter
	start time.Time
	next  atomic.Uint64
}

func (s *wsSink) Schedule(pcm []byte, at time.Duration) (voice.BufferID, error) {
	id := voice.BufferID(s.next.Add(1))

	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	if s.out.conn == nil || s.out.closed {
		return 0, errWriterClosed
	}

	header, err := json.Marshal(voiceEvent{Type: "audio", BufferID: uint64(id), AtMS: at.Milliseconds()})
	if err != nil {
		return 0, err
	}
	_ = s.out.conn.SetWriteDeadline(time.Now().Add(voiceWriteTimeout))
	if err := s.out.conn.WriteMessage(websocket.TextMessage, header); err != nil {
		return 0, err
	}
	if err := s.out.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *wsSink) Stop(id voice.BufferID) {
	_ = s.out.writeJSON(voiceEvent{Type: "stop_audio", BufferID: uint64(id)})
}

func (s *wsSink) Now() time.Duration {
	return time.Since(s.start)
}

func (s *wsSink) Close() error { return nil }
