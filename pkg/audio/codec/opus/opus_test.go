package opus

import (
	"errors"
	"math"
	"testing"
)

func sine(n, rate int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(math.Sin(2*math.Pi*440*float64(i)/float64(rate)) * 12000)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	const rate = 48000
	enc, err := NewEncoder(rate)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()
	dec, err := NewDecoder(16000)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	defer dec.Close()

	pcm := sine(rate/50, rate)
	for i := range 5 {
		packet, err := enc.Encode(pcm)
		if err != nil {
			t.Fatalf("Encode %d: %v", i, err)
		}
		samples, err := dec.Decode(packet)
		if err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if len(samples) != 320 {
			t.Fatalf("decoded %d samples, want 320", len(samples))
		}
	}

	lost, err := dec.Conceal(320)
	if err != nil {
		t.Fatalf("Conceal: %v", err)
	}
	if len(lost) != 320 {
		t.Fatalf("Conceal returned %d samples, want 320", len(lost))
	}
}

func TestClosed(t *testing.T) {
	dec, err := NewDecoder(16000)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	dec.Close()
	dec.Close()
	if _, err := dec.Decode([]byte{0xf8, 0xff, 0xfe}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Decode after Close = %v, want ErrClosed", err)
	}
	if _, err := NewDecoder(44100); err == nil {
		t.Fatal("NewDecoder(44100) should fail")
	}
}
