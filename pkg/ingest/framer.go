package ingest

import (
	"time"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

// Framer cuts an arbitrary sample stream into fixed-size frames stamped
// with their stream offset.
type Framer struct {
	format  pcm.Format
	size    int
	pending []int16
	offset  time.Duration // offset of pending[0]
}

// NewFramer creates a Framer emitting frames of the given duration.
func NewFramer(f pcm.Format, frame time.Duration) *Framer {
	return &Framer{format: f, size: max(f.SamplesInDuration(frame), 1)}
}

// Write appends samples and returns every complete frame.
func (f *Framer) Write(samples []int16) []pcm.Frame {
	f.pending = append(f.pending, samples...)
	var out []pcm.Frame
	for len(f.pending) >= f.size {
		out = append(out, f.frame(f.size))
	}
	if len(f.pending) == 0 {
		f.pending = nil
	}
	return out
}

// Skip records a hole in the stream. The partial frame is emitted first
// and the offset then advances by d, so the next frame lands after the
// gap.
func (f *Framer) Skip(d time.Duration) []pcm.Frame {
	out := f.Flush()
	if d > 0 {
		f.offset += d
	}
	return out
}

// Flush returns the buffered partial frame, if any.
func (f *Framer) Flush() []pcm.Frame {
	if len(f.pending) == 0 {
		return nil
	}
	return []pcm.Frame{f.frame(len(f.pending))}
}

// Offset returns the stream offset of the next sample.
func (f *Framer) Offset() time.Duration {
	return f.offset + f.format.Duration(len(f.pending))
}

func (f *Framer) frame(n int) pcm.Frame {
	samples := make([]int16, n)
	copy(samples, f.pending[:n])
	f.pending = f.pending[n:]
	fr := pcm.Frame{Format: f.format, Offset: f.offset, Samples: samples}
	f.offset += f.format.Duration(n)
	return fr
}
