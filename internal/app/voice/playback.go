package voice

import (
	"sync"
	"time"
)

// Sample rates of the live audio pipeline. Audio is PCM16 mono.
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
)

// BufferID identifies a buffer scheduled on an AudioSink.
type BufferID uint64

// AudioSink is the playback device. Times are measured on the sink's own
// clock, as returned by Now.
type AudioSink interface {
	Schedule(pcm []byte, at time.Duration) (BufferID, error)
	Stop(id BufferID)
	Now() time.Duration
	Close() error
}

// PCMDuration is the play time of a PCM16 mono buffer.
func PCMDuration(size, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := size / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

type scheduled struct {
	id  BufferID
	end time.Duration
}

// Player queues model audio back to back on a sink, without gaps.
type Player struct {
	mu         sync.Mutex
	sink       AudioSink
	sampleRate int
	watermark  time.Duration
	pending    []scheduled
	closeOnce  sync.Once
}

func NewPlayer(sink AudioSink, sampleRate int) *Player {
	return &Player{sink: sink, sampleRate: sampleRate}
}

// Enqueue schedules pcm at max(now, watermark) and advances the watermark by
// the buffer's duration. It returns the scheduled start.
func (p *Player) Enqueue(pcm []byte) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.sink.Now()
	start := max(now, p.watermark)

	id, err := p.sink.Schedule(pcm, start)
	if err != nil {
		return 0, err
	}

	end := start + PCMDuration(len(pcm), p.sampleRate)
	p.watermark = end
	p.pending = append(p.prune(now), scheduled{id: id, end: end})
	return start, nil
}

// prune drops buffers that have finished playing.
func (p *Player) prune(now time.Duration) []scheduled {
	kept := p.pending[:0]
	for _, s := range p.pending {
		if s.end > now {
			kept = append(kept, s)
		}
	}
	return kept
}

// Interrupt stops every queued buffer and resets the watermark.
func (p *Player) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.pending {
		p.sink.Stop(s.id)
	}
	p.pending = nil
	p.watermark = 0
}

// Speaking reports whether audio is still queued or playing.
func (p *Player) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = p.prune(p.sink.Now())
	return len(p.pending) > 0
}

// Watermark is the time the next buffer would start at, at the earliest.
func (p *Player) Watermark() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watermark
}

// Close stops playback and releases the sink. It is safe to call twice.
func (p *Player) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.Interrupt()
		err = p.sink.Close()
	})
	return err
}
