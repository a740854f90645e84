package rtc

import (
	"time"

	"github.com/pion/rtp"
)

// opusClock is the RTP clock rate of Opus, independent of the coded rate.
const opusClock = 48000

// gapAction tells the track reader how to treat a packet.
type gapAction int

const (
	gapNone    gapAction = iota // contiguous
	gapConceal                  // short packet loss, synthesize audio
	gapSilence                  // DTX pause or medium loss, insert silence
	gapSkip                     // long outage, leave a hole in the timeline
	gapDrop                     // duplicate or reordered, discard
)

func (a gapAction) String() string {
	switch a {
	case gapNone:
		return "none"
	case gapConceal:
		return "conceal"
	case gapSilence:
		return "silence"
	case gapSkip:
		return "skip"
	case gapDrop:
		return "drop"
	}
	return "unknown"
}

// sequencer follows RTP sequence numbers and timestamps of one track.
type sequencer struct {
	maxConceal time.Duration
	maxSilence time.Duration

	started bool
	nextSeq uint16
	nextTS  uint32
}

func newSequencer(maxConceal, maxSilence time.Duration) *sequencer {
	return &sequencer{maxConceal: maxConceal, maxSilence: maxSilence}
}

// observe classifies the packet with header h and returns the missing
// duration before it.
func (s *sequencer) observe(h *rtp.Header) (gapAction, time.Duration) {
	if !s.started {
		s.started = true
		s.nextSeq = h.SequenceNumber + 1
		s.nextTS = h.Timestamp
		return gapNone, 0
	}
	// Serial number arithmetic: a non-positive distance is an old packet.
	if int16(h.SequenceNumber-s.nextSeq) < 0 {
		return gapDrop, 0
	}
	lost := h.SequenceNumber != s.nextSeq
	s.nextSeq = h.SequenceNumber + 1

	ticks := int32(h.Timestamp - s.nextTS)
	s.nextTS = h.Timestamp
	if ticks <= 0 {
		return gapNone, 0
	}
	missing := time.Duration(ticks) * time.Second / opusClock
	switch {
	case lost && missing <= s.maxConceal:
		return gapConceal, missing
	case missing <= s.maxSilence:
		return gapSilence, missing
	default:
		return gapSkip, missing
	}
}

// advance moves the expected timestamp past a packet of duration d.
func (s *sequencer) advance(d time.Duration) {
	s.nextTS += uint32(d * opusClock / time.Second)
}
