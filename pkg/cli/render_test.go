package cli

import (
	"strings"
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00.0"},
		{-time.Second, "00:00.0"},
		{1500 * time.Millisecond, "00:01.5"},
		{61*time.Second + 250*time.Millisecond, "01:01.2"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03.0"},
	}
	for _, tt := range tests {
		if got := Clock(tt.d); got != tt.want {
			t.Errorf("Clock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTranscript(t *testing.T) {
	s := NewStyles(DefaultTheme)
	out := s.Transcript("room-1", []Line{
		{At: 2 * time.Second, Duration: 1500 * time.Millisecond, Speaker: "Alice", Text: "hello there"},
		{At: 5 * time.Second, Duration: 800 * time.Millisecond, Speaker: "Bob", Text: "hi"},
	}, 0)
	for _, want := range []string{"room-1", "00:02.0", "+1.5s", "Alice", "hello there", "00:05.0", "+800ms", "Bob", "hi"} {
		if !strings.Contains(out, want) {
			t.Errorf("Transcript() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Alice") > strings.Index(out, "Bob") {
		t.Error("lines are out of order")
	}

	empty := s.Transcript("room-2", nil, 80)
	if !strings.Contains(empty, "no utterances") {
		t.Errorf("empty transcript = %q", empty)
	}
}
