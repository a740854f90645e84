package rtc

import (
	"log/slog"
	"time"

	"github.com/pion/rtp"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/ingest"
)

// decoder is the part of opus.Decoder used by trackReader.
type decoder interface {
	Decode(packet []byte) ([]int16, error)
	Conceal(n int) ([]int16, error)
}

// trackReader turns RTP Opus packets into timed frames.
type trackReader struct {
	format pcm.Format
	dec    decoder
	seq    *sequencer
	framer *ingest.Framer
	push   func(pcm.Frame) bool
	live   func() bool
	log    *slog.Logger

	concealed time.Duration
	dropped   int
}

// packet handles one RTP packet. It reports false when the target
// pipeline no longer accepts audio.
func (tr *trackReader) packet(h *rtp.Header, payload []byte) bool {
	if len(payload) == 0 {
		return true
	}
	action, missing := tr.seq.observe(h)
	switch action {
	case gapDrop:
		return true
	case gapConceal:
		// Concealment works in 2.5ms steps.
		step := tr.format.SamplesInDuration(2500 * time.Microsecond)
		n := tr.format.SamplesInDuration(missing) / step * step
		samples, err := tr.dec.Conceal(n)
		if err != nil {
			tr.log.Debug("opus conceal failed", "error", err)
			samples = make([]int16, tr.format.SamplesInDuration(missing))
		}
		tr.concealed += missing
		tr.emit(tr.framer.Write(samples))
	case gapSilence:
		tr.emit(tr.framer.Write(make([]int16, tr.format.SamplesInDuration(missing))))
	case gapSkip:
		tr.log.Info("webrtc stream gap", "missing", missing)
		tr.emit(tr.framer.Skip(missing))
	}

	samples, err := tr.dec.Decode(payload)
	if err != nil {
		tr.log.Debug("opus decode failed", "seq", h.SequenceNumber, "error", err)
		return tr.live()
	}
	tr.seq.advance(tr.format.Duration(len(samples)))
	tr.emit(tr.framer.Write(samples))
	return tr.live()
}

func (tr *trackReader) flush() {
	tr.emit(tr.framer.Flush())
}

func (tr *trackReader) emit(frames []pcm.Frame) {
	for _, fr := range frames {
		if !tr.push(fr) {
			tr.dropped++
		}
	}
}
