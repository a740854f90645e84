package utterance

import (
	"time"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/audio/wav"
)

// Segment is a finalized utterance. It is immutable: Clip returns a copy.
type Segment struct {
	ID              string
	SessionID       string
	ParticipantID   string
	ParticipantName string

	// Start and End are wall-clock times of the first and last sample.
	Start time.Time
	End   time.Time

	// StartOffset and EndOffset are the same boundaries as stream offsets.
	StartOffset time.Duration
	EndOffset   time.Duration

	Format pcm.Format

	// Forced is set when the utterance was cut by the maximum duration.
	Forced bool

	clip []int16
}

// NewSegment builds a Segment around a private copy of clip. End is derived
// from Start and the clip length.
func NewSegment(s Segment, clip []int16) *Segment {
	s.clip = make([]int16, len(clip))
	copy(s.clip, clip)
	d := s.Format.Duration(len(clip))
	s.EndOffset = s.StartOffset + d
	s.End = s.Start.Add(d)
	return &s
}

// Clip returns a copy of the samples.
func (s *Segment) Clip() []int16 {
	out := make([]int16, len(s.clip))
	copy(out, s.clip)
	return out
}

// Len returns the number of samples.
func (s *Segment) Len() int {
	return len(s.clip)
}

// Duration returns the clip duration.
func (s *Segment) Duration() time.Duration {
	return s.Format.Duration(len(s.clip))
}

// WAV returns the clip as a WAVE file.
func (s *Segment) WAV() []byte {
	return wav.Bytes(s.Format, s.clip)
}
