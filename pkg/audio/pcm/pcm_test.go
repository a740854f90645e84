package pcm_test

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

func TestFormatSampleRate(t *testing.T) {
	tests := []struct {
		f    pcm.Format
		rate int
	}{
		{pcm.L16Mono8K, 8000},
		{pcm.L16Mono16K, 16000},
		{pcm.L16Mono24K, 24000},
		{pcm.L16Mono48K, 48000},
	}
	for _, tt := range tests {
		if got := tt.f.SampleRate(); got != tt.rate {
			t.Errorf("%v.SampleRate() = %d, want %d", tt.f, got, tt.rate)
		}
		f, err := pcm.ForRate(tt.rate)
		if err != nil {
			t.Fatalf("ForRate(%d): %v", tt.rate, err)
		}
		if f != tt.f {
			t.Errorf("ForRate(%d) = %v, want %v", tt.rate, f, tt.f)
		}
	}
	if _, err := pcm.ForRate(44100); err == nil {
		t.Fatal("ForRate(44100) should fail")
	}
	if pcm.Format(42).Valid() {
		t.Fatal("Format(42).Valid() = true")
	}
}

func TestFormatDuration(t *testing.T) {
	f := pcm.L16Mono16K
	if got := f.SamplesInDuration(20 * time.Millisecond); got != 320 {
		t.Fatalf("SamplesInDuration(20ms) = %d, want 320", got)
	}
	if got := f.Duration(16000); got != time.Second {
		t.Fatalf("Duration(16000) = %v, want 1s", got)
	}
	if got := pcm.L16Mono24K.Duration(480); got != 20*time.Millisecond {
		t.Fatalf("Duration(480) = %v, want 20ms", got)
	}
}

func TestFrames(t *testing.T) {
	samples := make([]int16, 16000+100)
	frames := pcm.L16Mono16K.Frames(samples, 20*time.Millisecond)
	if len(frames) != 51 {
		t.Fatalf("len(frames) = %d, want 51", len(frames))
	}
	for i, fr := range frames[:50] {
		if len(fr.Samples) != 320 {
			t.Fatalf("frame %d has %d samples, want 320", i, len(fr.Samples))
		}
		if want := time.Duration(i) * 20 * time.Millisecond; fr.Offset != want {
			t.Fatalf("frame %d offset = %v, want %v", i, fr.Offset, want)
		}
	}
	last := frames[50]
	if len(last.Samples) != 100 {
		t.Fatalf("last frame has %d samples, want 100", len(last.Samples))
	}
	if last.End() != pcm.L16Mono16K.Duration(len(samples)) {
		t.Fatalf("last.End() = %v, want %v", last.End(), pcm.L16Mono16K.Duration(len(samples)))
	}
}

func TestFrameLevel(t *testing.T) {
	silent := pcm.Frame{Format: pcm.L16Mono16K, Samples: make([]int16, 320)}
	if !math.IsInf(silent.DBFS(), -1) {
		t.Fatalf("silent DBFS = %v, want -Inf", silent.DBFS())
	}

	full := pcm.Frame{Format: pcm.L16Mono16K, Samples: make([]int16, 320)}
	for i := range full.Samples {
		if i%2 == 0 {
			full.Samples[i] = 32767
		} else {
			full.Samples[i] = -32768
		}
	}
	if db := full.DBFS(); db < -0.01 || db > 0.01 {
		t.Fatalf("full-scale DBFS = %v, want ~0", db)
	}
}

func TestL16RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234}
	b := pcm.EncodeL16(samples)
	if len(b) != 12 {
		t.Fatalf("len(EncodeL16) = %d, want 12", len(b))
	}
	if b[2] != 0x01 || b[3] != 0x00 {
		t.Fatalf("EncodeL16 is not little-endian: % x", b[2:4])
	}
	got := pcm.DecodeL16(append(b, 0xff))
	if !slices.Equal(got, samples) {
		t.Fatalf("DecodeL16 = %v, want %v", got, samples)
	}
}
