package rtc

import (
	"testing"
	"time"

	"github.com/pion/rtp"
)

func TestSequencer(t *testing.T) {
	const tick20 = 960 // 20ms at 48kHz
	tests := []struct {
		name    string
		seq     uint16
		ts      uint32
		want    gapAction
		missing time.Duration
	}{
		{"first", 100, 0, gapNone, 0},
		{"contiguous", 101, tick20, gapNone, 0},
		{"duplicate", 101, tick20, gapDrop, 0},
		{"one lost", 103, 3 * tick20, gapConceal, 20 * time.Millisecond},
		{"reordered", 102, 2 * tick20, gapDrop, 0},
		{"dtx pause", 104, 3*tick20 + 48000, gapSilence, time.Second - 20*time.Millisecond},
		{"outage", 200, 3*tick20 + 48000 + 10*48000, gapSkip, 10*time.Second - 20*time.Millisecond},
	}
	s := newSequencer(100*time.Millisecond, 5*time.Second)
	for _, tt := range tests {
		got, missing := s.observe(&rtp.Header{SequenceNumber: tt.seq, Timestamp: tt.ts})
		if got != tt.want || missing != tt.missing {
			t.Errorf("%s: observe = %v, %v, want %v, %v", tt.name, got, missing, tt.want, tt.missing)
		}
		if got != gapDrop {
			s.advance(20 * time.Millisecond)
		}
	}
}

func TestSequencerWraparound(t *testing.T) {
	s := newSequencer(100*time.Millisecond, 5*time.Second)
	s.observe(&rtp.Header{SequenceNumber: 65535, Timestamp: 4294967295 - 959})
	s.advance(20 * time.Millisecond)
	got, missing := s.observe(&rtp.Header{SequenceNumber: 0, Timestamp: 0})
	if got != gapNone || missing != 0 {
		t.Fatalf("observe across wrap = %v, %v, want none", got, missing)
	}
	s.advance(20 * time.Millisecond)
	got, _ = s.observe(&rtp.Header{SequenceNumber: 65535, Timestamp: 4294967295 - 959})
	if got != gapDrop {
		t.Fatalf("old packet across wrap = %v, want drop", got)
	}
}
