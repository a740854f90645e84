package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haivivi/scribe/pkg/audio/resampler"
	"github.com/haivivi/scribe/pkg/audio/wav"
	"github.com/haivivi/scribe/pkg/utterance"
)

// DefaultTimeout bounds a provider request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config holds request settings shared by all dispatches.
type Config struct {
	Timeout  time.Duration `yaml:"timeout"`
	Language string        `yaml:"language"`
	Prompt   string        `yaml:"prompt"`
}

// Result is a successful transcription of one segment.
type Result struct {
	Segment      *utterance.Segment
	Text         string
	Language     string
	Provider     string
	RecognizedAt time.Time
}

// Dispatcher sends segments to a Provider. It is safe for concurrent use.
type Dispatcher struct {
	provider Provider
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock overrides time.Now for RecognizedAt.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher creates a Dispatcher for p.
func NewDispatcher(p Provider, cfg Config, opts ...Option) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	d := &Dispatcher{
		provider: p,
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Provider returns the provider name.
func (d *Dispatcher) Provider() string {
	return d.provider.Name()
}

// Dispatch transcribes seg with a single provider request. If ctx is
// cancelled the context error is returned as is.
func (d *Dispatcher) Dispatch(ctx context.Context, seg *utterance.Segment) (*Result, error) {
	if seg == nil || seg.Len() == 0 {
		return nil, ErrEmptyClip
	}
	name := d.provider.Name()

	clip := seg.Clip()
	format := d.provider.Format()
	if format != seg.Format {
		var err error
		clip, err = resampler.Clip(clip, seg.Format, format)
		if err != nil {
			return nil, fmt.Errorf("transcribe: prepare clip: %w", err)
		}
	}
	req := &Request{
		Audio:    wav.Bytes(format, clip),
		MIMEType: wav.MIMEType,
		Format:   format,
		Language: d.cfg.Language,
		Prompt:   d.cfg.Prompt,
	}

	rctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	began := d.now()
	tr, err := d.provider.Transcribe(rctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Provider: name, After: d.cfg.Timeout}
		}
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &ProviderError{Provider: name, Detail: err.Error(), Err: err}
	}

	res := &Result{
		Segment:      seg,
		Text:         tr.Text,
		Language:     tr.Language,
		Provider:     name,
		RecognizedAt: d.now(),
	}
	if res.Language == "" {
		res.Language = d.cfg.Language
	}
	d.logger.Debug("transcribe done",
		"provider", name,
		"participant", seg.ParticipantID,
		"segment", seg.ID,
		"audio", seg.Duration(),
		"took", res.RecognizedAt.Sub(began),
		"chars", len(res.Text),
	)
	return res, nil
}
