package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

// Source delivers one participant's frames in stream order. The producer
// closes the channel when the stream ends; the pipeline never closes it.
type Source interface {
	Frames() <-chan pcm.Frame
}

// DefaultSourceBuffer is the ChanSource capacity used when none is given.
// At 20ms frames it holds about ten seconds of audio.
const DefaultSourceBuffer = 512

// ChanSource is a Source fed by Push. Pushing never blocks: when the buffer
// is full the frame is dropped and counted.
type ChanSource struct {
	mu      sync.RWMutex
	ch      chan pcm.Frame
	closed  bool
	dropped atomic.Int64
}

var _ Source = (*ChanSource)(nil)

// NewChanSource creates a ChanSource with room for n frames.
func NewChanSource(n int) *ChanSource {
	if n <= 0 {
		n = DefaultSourceBuffer
	}
	return &ChanSource{ch: make(chan pcm.Frame, n)}
}

func (s *ChanSource) Frames() <-chan pcm.Frame { return s.ch }

// Push enqueues fr. It reports false if the source is closed or full.
func (s *ChanSource) Push(fr pcm.Frame) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- fr:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of frames discarded because the buffer was
// full.
func (s *ChanSource) Dropped() int64 {
	return s.dropped.Load()
}

// Close ends the stream. Frames already pushed are still delivered. Close
// is idempotent.
func (s *ChanSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
