package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/storage"
	"github.com/haivivi/scribe/pkg/transcribe"
	"github.com/haivivi/scribe/pkg/transcript"
	"github.com/haivivi/scribe/pkg/utterance"
	"github.com/haivivi/scribe/pkg/vad"
)

// Retry bounds for a single utterance.
const (
	DefaultRetryAttempts = 2
	MaxRetryAttempts     = 3
	DefaultRetryBackoff  = 500 * time.Millisecond
)

// Config holds the per-participant pipeline settings.
type Config struct {
	VAD vad.Config `yaml:"vad"`

	// Format of the frames sources deliver. Defaults to 16kHz mono.
	Format pcm.Format `yaml:"-"`

	PrePadding  time.Duration `yaml:"pre_padding"`
	PostPadding time.Duration `yaml:"post_padding"`

	// RetryAttempts is the total number of dispatches per utterance,
	// counting the first. Zero means DefaultRetryAttempts; values above
	// MaxRetryAttempts are clamped. Only timeouts and retryable provider
	// errors are retried.
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`

	// PersistEmpty keeps records whose recognized text is empty.
	PersistEmpty bool `yaml:"persist_empty"`

	// QueueLimit caps finalized utterances waiting for dispatch. Beyond it
	// new utterances are dropped. Defaults to 64.
	QueueLimit int `yaml:"queue_limit"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		VAD:           vad.DefaultConfig(),
		Format:        pcm.L16Mono16K,
		PrePadding:    200 * time.Millisecond,
		PostPadding:   200 * time.Millisecond,
		RetryAttempts: DefaultRetryAttempts,
		RetryBackoff:  DefaultRetryBackoff,
		QueueLimit:    64,
	}
}

func (c Config) withDefaults() Config {
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	c.RetryAttempts = min(c.RetryAttempts, MaxRetryAttempts)
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = 64
	}
	return c
}

// Validate checks c without applying defaults.
func (c Config) Validate() error {
	if err := c.VAD.Validate(); err != nil {
		return err
	}
	if !c.Format.Valid() {
		return fmt.Errorf("pipeline: invalid format %v", c.Format)
	}
	if c.PrePadding < 0 || c.PostPadding < 0 {
		return errors.New("pipeline: padding must not be negative")
	}
	return nil
}

// Dispatcher transcribes one segment per call. *transcribe.Dispatcher
// implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, seg *utterance.Segment) (*transcribe.Result, error)
}

var _ Dispatcher = (*transcribe.Dispatcher)(nil)

// Deps are the collaborators shared by all pipelines of a supervisor.
type Deps struct {
	Dispatcher Dispatcher
	Sink       transcript.Sink

	// Archive receives each dispatched clip as WAV when set.
	Archive storage.ClipStore

	// Scorer overrides the detector's default energy scorer.
	Scorer vad.Scorer

	Logger *slog.Logger

	// Now defaults to time.Now. It stamps stream offset zero.
	Now func() time.Time
}

func (d Deps) validate() error {
	if d.Dispatcher == nil {
		return errors.New("pipeline: dispatcher is required")
	}
	if d.Sink == nil {
		return errors.New("pipeline: sink is required")
	}
	return nil
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
