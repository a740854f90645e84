package rtc

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pion/rtp"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/ingest"
)

// fakeDecoder returns 20ms of a constant per packet and marks concealed
// audio with -1.
type fakeDecoder struct {
	concealCalls int
}

func (d *fakeDecoder) Decode(packet []byte) ([]int16, error) {
	if packet[0] == 0xff {
		return nil, errors.New("corrupt")
	}
	out := make([]int16, 320)
	for i := range out {
		out[i] = int16(packet[0])
	}
	return out, nil
}

func (d *fakeDecoder) Conceal(n int) ([]int16, error) {
	d.concealCalls++
	out := make([]int16, n)
	for i := range out {
		out[i] = -1
	}
	return out, nil
}

func newTestReader() (*trackReader, *fakeDecoder, *[]pcm.Frame) {
	var frames []pcm.Frame
	dec := &fakeDecoder{}
	tr := &trackReader{
		format: pcm.L16Mono16K,
		dec:    dec,
		seq:    newSequencer(100*time.Millisecond, 5*time.Second),
		framer: ingest.NewFramer(pcm.L16Mono16K, ingest.FrameSize),
		push: func(fr pcm.Frame) bool {
			frames = append(frames, fr)
			return true
		},
		live: func() bool { return true },
		log:  slog.Default(),
	}
	return tr, dec, &frames
}

func header(seq uint16, ts uint32) *rtp.Header {
	return &rtp.Header{SequenceNumber: seq, Timestamp: ts}
}

func TestTrackReaderContiguous(t *testing.T) {
	tr, _, frames := newTestReader()
	for i := range 5 {
		tr.packet(header(uint16(10+i), uint32(i*960)), []byte{byte(i + 1)})
	}
	if len(*frames) != 5 {
		t.Fatalf("frames = %d, want 5", len(*frames))
	}
	for i, fr := range *frames {
		if want := time.Duration(i) * 20 * time.Millisecond; fr.Offset != want {
			t.Errorf("frame %d offset = %v, want %v", i, fr.Offset, want)
		}
		if fr.Samples[0] != int16(i+1) {
			t.Errorf("frame %d sample = %d, want %d", i, fr.Samples[0], i+1)
		}
	}
}

func TestTrackReaderConceal(t *testing.T) {
	tr, dec, frames := newTestReader()
	tr.packet(header(1, 0), []byte{1})
	tr.packet(header(4, 3*960), []byte{4}) // two packets lost
	if dec.concealCalls != 1 {
		t.Fatalf("conceal calls = %d, want 1", dec.concealCalls)
	}
	got := *frames
	if len(got) != 4 {
		t.Fatalf("frames = %d, want 4", len(got))
	}
	if got[1].Samples[0] != -1 || got[2].Samples[0] != -1 {
		t.Fatal("lost packets were not concealed")
	}
	if got[3].Offset != 60*time.Millisecond || got[3].Samples[0] != 4 {
		t.Fatalf("frame after loss = %v/%d, want 60ms/4", got[3].Offset, got[3].Samples[0])
	}
	if tr.concealed != 40*time.Millisecond {
		t.Fatalf("concealed = %v, want 40ms", tr.concealed)
	}
}

func TestTrackReaderDTXSilence(t *testing.T) {
	tr, dec, frames := newTestReader()
	tr.packet(header(1, 0), []byte{1})
	tr.packet(header(2, 960+48000), []byte{2}) // 1s pause, nothing lost
	if dec.concealCalls != 0 {
		t.Fatalf("conceal calls = %d, want 0", dec.concealCalls)
	}
	got := *frames
	last := got[len(got)-1]
	if last.Offset != 1020*time.Millisecond || last.Samples[0] != 2 {
		t.Fatalf("frame after pause = %v/%d, want 1.02s/2", last.Offset, last.Samples[0])
	}
	if len(got) != 52 {
		t.Fatalf("frames = %d, want 52", len(got))
	}
}

func TestTrackReaderOutageSkips(t *testing.T) {
	tr, _, frames := newTestReader()
	tr.packet(header(1, 0), []byte{1})
	tr.packet(header(500, 960+10*48000), []byte{2})
	got := *frames
	if len(got) != 2 {
		t.Fatalf("frames = %d, want 2", len(got))
	}
	if got[1].Offset != 10020*time.Millisecond {
		t.Fatalf("offset after outage = %v, want 10.02s", got[1].Offset)
	}
}

// A duplicate is dropped and an undecodable packet becomes silence.
func TestTrackReaderDropsOldAndCorrupt(t *testing.T) {
	tr, _, frames := newTestReader()
	tr.packet(header(1, 0), []byte{1})
	tr.packet(header(2, 960), []byte{2})
	tr.packet(header(1, 0), []byte{1})
	tr.packet(header(3, 1920), []byte{0xff})
	tr.packet(header(4, 2880), []byte{4})
	got := *frames
	if len(got) != 4 {
		t.Fatalf("frames = %d, want 4", len(got))
	}
	if got[2].Samples[0] != 0 || got[3].Offset != 60*time.Millisecond {
		t.Fatalf("corrupt packet should become silence, got %d at %v", got[2].Samples[0], got[3].Offset)
	}
}

func TestTrackReaderStopsWhenPipelineGone(t *testing.T) {
	tr, _, _ := newTestReader()
	tr.live = func() bool { return false }
	if tr.packet(header(1, 0), []byte{1}) {
		t.Fatal("packet() = true, want false once the pipeline is gone")
	}
}
