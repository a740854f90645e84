package vad

import (
	"errors"
	"fmt"
	"time"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

var (
	// ErrClosed is returned by Feed after Close.
	ErrClosed = errors.New("vad: detector closed")

	// ErrInvalidFormat is returned by Feed for a frame whose format is not
	// a known pcm.Format.
	ErrInvalidFormat = errors.New("vad: invalid frame format")
)

// State is the detector state.
type State int

const (
	Idle State = iota
	Speaking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Speaking:
		return "speaking"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventKind identifies a detector event.
type EventKind int

const (
	SpeechStarted EventKind = iota + 1
	SpeechEnded
)

func (k EventKind) String() string {
	switch k {
	case SpeechStarted:
		return "speech_started"
	case SpeechEnded:
		return "speech_ended"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a speech boundary.
type Event struct {
	Kind EventKind

	// Offset is the stream position of the boundary.
	Offset time.Duration

	// Forced is set on a SpeechEnded produced by the MaxUtterance cutoff.
	Forced bool
}

// Config holds the detector thresholds.
type Config struct {
	// PositiveThreshold is the probability at or above which a frame counts
	// as speech while Idle.
	PositiveThreshold float64 `yaml:"positive_threshold"`

	// NegativeThreshold is the probability below which a frame counts as
	// silence while Speaking. Must be lower than PositiveThreshold.
	NegativeThreshold float64 `yaml:"negative_threshold"`

	// MinSpeech is how long speech must last before SpeechStarted.
	MinSpeech time.Duration `yaml:"min_speech"`

	// MinSilence is how long silence must last before SpeechEnded.
	MinSilence time.Duration `yaml:"min_silence"`

	// MaxUtterance forces a SpeechEnded once an utterance has lasted this
	// long. Zero disables the cutoff.
	MaxUtterance time.Duration `yaml:"max_utterance"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		PositiveThreshold: 0.6,
		NegativeThreshold: 0.3,
		MinSpeech:         90 * time.Millisecond,
		MinSilence:        700 * time.Millisecond,
		MaxUtterance:      30 * time.Second,
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.PositiveThreshold <= 0 || c.PositiveThreshold > 1:
		return fmt.Errorf("positive threshold %v out of range (0, 1]", c.PositiveThreshold)
	case c.NegativeThreshold < 0 || c.NegativeThreshold >= c.PositiveThreshold:
		return fmt.Errorf("negative threshold %v must be in [0, %v)", c.NegativeThreshold, c.PositiveThreshold)
	case c.MinSpeech < 0 || c.MinSilence < 0 || c.MaxUtterance < 0:
		return errors.New("durations must not be negative")
	case c.MaxUtterance > 0 && c.MaxUtterance <= c.MinSpeech:
		return fmt.Errorf("max utterance %v must exceed min speech %v", c.MaxUtterance, c.MinSpeech)
	}
	return nil
}

// InitError is returned when a Detector cannot be constructed.
type InitError struct {
	Err error
}

func (e *InitError) Error() string { return "vad: init: " + e.Err.Error() }
func (e *InitError) Unwrap() error { return e.Err }

// Detector is the speech/silence state machine for one audio stream. It is
// not safe for concurrent use; a pipeline feeds it from a single goroutine.
type Detector struct {
	cfg    Config
	scorer Scorer

	state  State
	closed bool

	// Idle: the current run of speech frames.
	runStart time.Duration
	runLen   time.Duration

	// Speaking: utterance start, end of the last non-silent frame and the
	// current run of silence.
	speechStart time.Duration
	lastVoiced  time.Duration
	silenceLen  time.Duration
}

// Option configures a Detector.
type Option func(*Detector)

// WithScorer sets the frame scorer (default EnergyScorer with default levels).
func WithScorer(s Scorer) Option {
	return func(d *Detector) {
		if s != nil {
			d.scorer = s
		}
	}
}

// New creates a Detector. An invalid configuration yields an *InitError.
func New(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Err: err}
	}
	d := &Detector{cfg: cfg, scorer: DefaultEnergyScorer()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// State returns the current state.
func (d *Detector) State() State {
	return d.state
}

// Feed consumes one frame and returns the events it caused, in order. At
// most one SpeechStarted and one SpeechEnded are returned per frame, and the
// events always alternate across calls.
func (d *Detector) Feed(fr pcm.Frame) ([]Event, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if !fr.Format.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, fr.Format)
	}
	if len(fr.Samples) == 0 {
		return nil, nil
	}
	p := d.scorer.Score(fr)

	var events []Event
	switch d.state {
	case Idle:
		if p < d.cfg.PositiveThreshold {
			d.runLen = 0
			break
		}
		if d.runLen == 0 {
			d.runStart = fr.Offset
		}
		d.runLen += fr.Duration()
		if d.runLen >= d.cfg.MinSpeech {
			d.state = Speaking
			d.speechStart = d.runStart
			d.lastVoiced = fr.End()
			d.silenceLen = 0
			d.runLen = 0
			events = append(events, Event{Kind: SpeechStarted, Offset: d.speechStart})
		}

	case Speaking:
		if p < d.cfg.NegativeThreshold {
			d.silenceLen += fr.Duration()
			if d.silenceLen >= d.cfg.MinSilence {
				return append(events, d.end(d.lastVoiced, false)), nil
			}
		} else {
			d.silenceLen = 0
			d.lastVoiced = fr.End()
		}
	}

	if d.state == Speaking && d.cfg.MaxUtterance > 0 && fr.End()-d.speechStart >= d.cfg.MaxUtterance {
		events = append(events, d.end(fr.End(), true))
	}
	return events, nil
}

func (d *Detector) end(at time.Duration, forced bool) Event {
	d.state = Idle
	d.silenceLen = 0
	d.runLen = 0
	return Event{Kind: SpeechEnded, Offset: at, Forced: forced}
}

// Flush ends an utterance in progress at the last voiced offset, as if
// enough silence had followed. It is used when the stream ends cleanly.
// Flush returns nil when idle or closed.
func (d *Detector) Flush() []Event {
	if d.closed || d.state != Speaking {
		d.runLen = 0
		return nil
	}
	return []Event{d.end(d.lastVoiced, false)}
}

// Close stops the detector. An utterance in progress is dropped without a
// SpeechEnded. Close is idempotent.
func (d *Detector) Close() error {
	d.closed = true
	d.state = Idle
	d.runLen = 0
	d.silenceLen = 0
	return nil
}
