// Package audiotest builds synthetic PCM streams for tests.
package audiotest

import (
	"math"
	"time"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

// FrameSize is the frame duration used by Stream.
const FrameSize = 20 * time.Millisecond

// Tone returns d of a 220Hz sine at an amplitude of 8000 (about -15 dBFS).
func Tone(f pcm.Format, d time.Duration) []int16 {
	n := f.SamplesInDuration(d)
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(8000 * math.Sin(2*math.Pi*220*float64(i)/float64(f.SampleRate())))
	}
	return out
}

// Silence returns d of digital silence.
func Silence(f pcm.Format, d time.Duration) []int16 {
	return make([]int16, f.SamplesInDuration(d))
}

// Part is one section of a synthetic stream.
type Part struct {
	Speech   bool
	Duration time.Duration
}

// Stream concatenates parts and splits them into FrameSize frames.
func Stream(f pcm.Format, parts ...Part) []pcm.Frame {
	var samples []int16
	for _, p := range parts {
		if p.Speech {
			samples = append(samples, Tone(f, p.Duration)...)
		} else {
			samples = append(samples, Silence(f, p.Duration)...)
		}
	}
	return f.Frames(samples, FrameSize)
}

// Speech is shorthand for Part{Speech: true, Duration: d}.
func Speech(d time.Duration) Part { return Part{Speech: true, Duration: d} }

// Quiet is shorthand for Part{Duration: d}.
func Quiet(d time.Duration) Part { return Part{Duration: d} }
