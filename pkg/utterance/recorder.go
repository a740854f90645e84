package utterance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/buffer"
)

// Sentinel errors.
var (
	// ErrCaptureOpen is returned (inside an *InitError) by Open while another
	// capture is still open.
	ErrCaptureOpen = errors.New("utterance: capture already open")

	// ErrUnsupportedFormat is returned (inside an *InitError) when the stream
	// format does not match the recorder.
	ErrUnsupportedFormat = errors.New("utterance: unsupported audio format")

	// ErrClosed is returned after the recorder is closed.
	ErrClosed = errors.New("utterance: recorder closed")

	// ErrAbandoned is returned by Capture.Wait for an abandoned capture.
	ErrAbandoned = errors.New("utterance: capture abandoned")
)

// maxGap is the largest hole in frame offsets that is filled with silence.
// Larger holes drop the open capture and the look-back window.
const maxGap = 5 * time.Second

// InitError reports that a capture could not be opened. The utterance is
// lost; the recorder stays usable.
type InitError struct {
	ParticipantID string
	Err           error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("utterance: init capture for %s: %v", e.ParticipantID, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Options configures a Recorder.
type Options struct {
	Format          pcm.Format
	SessionID       string
	ParticipantID   string
	ParticipantName string

	// Base is the wall-clock time of stream offset zero.
	Base time.Time

	// PrePadding and PostPadding widen every clip around the detected
	// boundaries, as far as audio is available.
	PrePadding  time.Duration
	PostPadding time.Duration

	// Lookback is how much recent audio the recorder retains while no
	// capture is open. It must cover the detector's start delay plus
	// PrePadding. Default 1s plus PrePadding.
	Lookback time.Duration

	Logger *slog.Logger
}

// Recorder owns the capture slot of one participant stream.
type Recorder struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	ring       *buffer.Ring[int16]
	end        time.Duration // stream offset just past the last written sample
	started    bool
	lastFormat pcm.Format
	open       *Capture
	closed     bool
}

// NewRecorder creates a Recorder. It fails if the format is not supported.
func NewRecorder(opts Options) (*Recorder, error) {
	if !opts.Format.Valid() {
		return nil, &InitError{ParticipantID: opts.ParticipantID, Err: fmt.Errorf("%w: %v", ErrUnsupportedFormat, opts.Format)}
	}
	if opts.Lookback <= 0 {
		opts.Lookback = time.Second + opts.PrePadding
	}
	if opts.Base.IsZero() {
		opts.Base = time.Now()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		opts:       opts,
		logger:     logger,
		ring:       buffer.RingN[int16](opts.Format.SamplesInDuration(opts.Lookback)),
		lastFormat: opts.Format,
	}, nil
}

// Write records a frame. Frames must be written in stream order; a gap in
// offsets is filled with silence, overlapping samples are dropped and a frame
// that ends at or before the recorded end is ignored. A frame in a different
// format abandons the open capture and is not recorded.
func (r *Recorder) Write(fr pcm.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.lastFormat = fr.Format
	if fr.Format != r.opts.Format {
		if r.open != nil {
			r.open.abandonLocked()
		}
		return fmt.Errorf("%w: got %v, want %v", ErrUnsupportedFormat, fr.Format, r.opts.Format)
	}

	samples := fr.Samples
	if !r.started {
		r.started = true
		r.end = fr.Offset
	} else if fr.End() <= r.end {
		r.logger.Debug("utterance late frame dropped", "participant", r.opts.ParticipantID, "offset", fr.Offset, "end", r.end)
		return nil
	}
	switch gap := fr.Offset - r.end; {
	case gap > maxGap:
		r.logger.Warn("utterance stream discontinuity", "participant", r.opts.ParticipantID, "gap", gap)
		if r.open != nil {
			r.open.abandonLocked()
		}
		r.ring.Reset()
	case gap > 0:
		r.appendLocked(make([]int16, r.opts.Format.SamplesInDuration(gap)))
	case gap < 0:
		skip := min(r.opts.Format.SamplesInDuration(-gap), len(samples))
		samples = samples[skip:]
	}
	r.appendLocked(samples)
	r.end = max(r.end, fr.End())
	return nil
}

func (r *Recorder) appendLocked(samples []int16) {
	if len(samples) == 0 {
		return
	}
	r.ring.Write(samples)
	if r.open != nil {
		r.open.buf.Write(samples)
	}
}

// Open starts a capture for an utterance that began at the stream offset
// start. Audio from start-PrePadding that is still in the look-back window is
// copied in. Failures are returned as *InitError.
func (r *Recorder) Open(start time.Duration) (*Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pid := r.opts.ParticipantID
	switch {
	case r.closed:
		return nil, &InitError{ParticipantID: pid, Err: ErrClosed}
	case r.open != nil:
		return nil, &InitError{ParticipantID: pid, Err: ErrCaptureOpen}
	case r.lastFormat != r.opts.Format:
		return nil, &InitError{ParticipantID: pid, Err: fmt.Errorf("%w: %v", ErrUnsupportedFormat, r.lastFormat)}
	}

	from := max(start-r.opts.PrePadding, 0)
	n := 0
	if from < r.end {
		n = r.opts.Format.SamplesInDuration(r.end - from)
	}
	head := r.ring.Tail(n)

	c := &Capture{
		rec:   r,
		id:    uuid.NewString(),
		start: start,
		first: r.end - r.opts.Format.Duration(len(head)),
		buf:   buffer.N[int16](r.opts.Format.SamplesInDuration(time.Second)),
		done:  make(chan struct{}),
	}
	c.buf.Write(head)
	go c.drain()
	r.open = c
	r.logger.Debug("utterance capture opened", "participant", pid, "capture", c.id, "start", start)
	return c, nil
}

// Close abandons the open capture, if any, and rejects further writes.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.open != nil {
		r.open.abandonLocked()
	}
	return nil
}

// Capture is the buffer of one utterance.
type Capture struct {
	rec   *Recorder
	id    string
	start time.Duration
	first time.Duration // stream offset of the first buffered sample
	buf   *buffer.Buffer[int16]
	done  chan struct{}

	// Set by the drain goroutine before done is closed.
	clip     []int16
	drainErr error

	// Guarded by rec.mu.
	closed bool
	end    time.Duration
	forced bool
}

// ID returns the capture identifier, which becomes the segment ID.
func (c *Capture) ID() string { return c.id }

// Start returns the stream offset at which the utterance began.
func (c *Capture) Start() time.Duration { return c.start }

func (c *Capture) drain() {
	defer close(c.done)
	chunk := make([]int16, 4096)
	for {
		n, err := c.buf.Read(chunk)
		c.clip = append(c.clip, chunk[:n]...)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.drainErr = err
			}
			return
		}
	}
}

// Finalize ends the utterance at the stream offset end and frees the
// recorder for the next utterance. The segment is assembled asynchronously;
// call Wait to obtain it. Finalize after Finalize or Abandon is a no-op.
func (c *Capture) Finalize(end time.Duration, forced bool) {
	r := c.rec
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.end = max(end, c.start)
	c.forced = forced
	if r.open == c {
		r.open = nil
	}
	c.buf.CloseWrite()
}

// Abandon discards the capture. Wait returns ErrAbandoned.
func (c *Capture) Abandon() {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	c.abandonLocked()
}

func (c *Capture) abandonLocked() {
	if c.rec.open == c {
		c.rec.open = nil
	}
	if !c.closed {
		c.closed = true
		c.rec.logger.Debug("utterance capture abandoned", "participant", c.rec.opts.ParticipantID, "capture", c.id)
	}
	c.buf.CloseWithError(ErrAbandoned)
}

// Wait blocks until the finalized audio has been drained and returns the
// segment trimmed to [start-PrePadding, end+PostPadding]. The segment may hold
// zero samples.
func (c *Capture) Wait(ctx context.Context) (*Segment, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if c.drainErr != nil {
		if errors.Is(c.drainErr, ErrAbandoned) {
			return nil, ErrAbandoned
		}
		return nil, c.drainErr
	}

	r := c.rec
	r.mu.Lock()
	end, forced := c.end, c.forced
	r.mu.Unlock()

	f := r.opts.Format
	avail := c.first + f.Duration(len(c.clip))
	from := max(c.start-r.opts.PrePadding, c.first)
	to := min(end+r.opts.PostPadding, avail)
	if to < from {
		to = from
	}
	lo := f.SamplesInDuration(from - c.first)
	hi := min(f.SamplesInDuration(to-c.first), len(c.clip))
	lo = min(lo, hi)

	seg := NewSegment(Segment{
		ID:              c.id,
		SessionID:       r.opts.SessionID,
		ParticipantID:   r.opts.ParticipantID,
		ParticipantName: r.opts.ParticipantName,
		Start:           r.opts.Base.Add(from),
		StartOffset:     from,
		Format:          f,
		Forced:          forced,
	}, c.clip[lo:hi])
	return seg, nil
}
