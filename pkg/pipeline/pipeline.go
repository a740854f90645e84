package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/audio/wav"
	"github.com/haivivi/scribe/pkg/storage"
	"github.com/haivivi/scribe/pkg/transcribe"
	"github.com/haivivi/scribe/pkg/transcript"
	"github.com/haivivi/scribe/pkg/utterance"
	"github.com/haivivi/scribe/pkg/vad"
)

// Defaults applied to participants that do not name themselves.
const (
	UnknownSession     = "unknown-session"
	UnknownParticipant = "unknown-participant"
)

// Participant identifies the speaker of a stream.
type Participant struct {
	SessionID string
	ID        string
	Name      string
}

func (p Participant) withDefaults() Participant {
	if p.SessionID == "" {
		p.SessionID = UnknownSession
	}
	if p.ID == "" {
		p.ID = UnknownParticipant
	}
	return p
}

// Stats counts what happened to a participant's utterances.
type Stats struct {
	Utterances  int64 // finalized by the detector
	Dropped     int64 // abandoned, empty, or over the queue limit
	Transcribed int64
	Failed      int64 // dispatch failed after retries
	Persisted   int64
}

type counters struct {
	utterances, dropped, transcribed, failed, persisted atomic.Int64
}

// Pipeline processes one participant's stream. Create it with New; it
// runs until its source ends or Close is called.
type Pipeline struct {
	participant Participant
	cfg         Config
	deps        Deps
	logger      *slog.Logger

	detector *vad.Detector
	recorder *utterance.Recorder
	capture  *utterance.Capture // owned by the ingest goroutine

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending []*utterance.Capture
	ended   bool // no more captures will be queued
	wake    chan struct{}

	stats counters
	wg    sync.WaitGroup
	done  chan struct{}
}

// New builds the detector and recorder for p and starts reading src.
// Construction failures are returned as *vad.InitError or
// *utterance.InitError and leave nothing running.
func New(ctx context.Context, p Participant, src Source, cfg Config, deps Deps) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	cfg = cfg.withDefaults()
	logger := deps.logger().With("session", p.SessionID, "participant", p.ID)

	var detOpts []vad.Option
	if deps.Scorer != nil {
		detOpts = append(detOpts, vad.WithScorer(deps.Scorer))
	}
	det, err := vad.New(cfg.VAD, detOpts...)
	if err != nil {
		return nil, err
	}
	rec, err := utterance.NewRecorder(utterance.Options{
		Format:          cfg.Format,
		SessionID:       p.SessionID,
		ParticipantID:   p.ID,
		ParticipantName: p.Name,
		Base:            deps.now(),
		PrePadding:      cfg.PrePadding,
		PostPadding:     cfg.PostPadding,
		Lookback:        cfg.VAD.MinSpeech + cfg.PrePadding + time.Second,
		Logger:          logger,
	})
	if err != nil {
		det.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	pl := &Pipeline{
		participant: p,
		cfg:         cfg,
		deps:        deps,
		logger:      logger,
		detector:    det,
		recorder:    rec,
		ctx:         ctx,
		cancel:      cancel,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	pl.wg.Add(2)
	go func() {
		defer pl.wg.Done()
		pl.ingestLoop(src)
	}()
	go func() {
		defer pl.wg.Done()
		pl.dispatchLoop()
	}()
	go func() {
		pl.wg.Wait()
		cancel()
		close(pl.done)
	}()
	logger.Info("pipeline started")
	return pl, nil
}

// Participant returns the participant this pipeline serves.
func (pl *Pipeline) Participant() Participant { return pl.participant }

// Close stops the pipeline: the utterance being recorded is discarded
// without a SpeechEnded, queued utterances are dropped and an in-flight
// dispatch is cancelled. Close does not wait; use Done.
func (pl *Pipeline) Close() {
	pl.cancel()
}

// Done is closed once both pipeline goroutines have exited.
func (pl *Pipeline) Done() <-chan struct{} { return pl.done }

// Stats returns a snapshot of the utterance counters.
func (pl *Pipeline) Stats() Stats {
	return Stats{
		Utterances:  pl.stats.utterances.Load(),
		Dropped:     pl.stats.dropped.Load(),
		Transcribed: pl.stats.transcribed.Load(),
		Failed:      pl.stats.failed.Load(),
		Persisted:   pl.stats.persisted.Load(),
	}
}

func (pl *Pipeline) ingestLoop(src Source) {
	defer pl.endQueue()
	defer pl.recorder.Close()
	defer pl.detector.Close()

	frames := src.Frames()
	for {
		select {
		case <-pl.ctx.Done():
			if pl.capture != nil {
				pl.logger.Debug("discard partial utterance", "capture", pl.capture.ID())
			}
			return
		case fr, ok := <-frames:
			if !ok {
				if pl.ctx.Err() != nil {
					return
				}
				pl.handle(pl.detector.Flush())
				pl.logger.Debug("source ended")
				return
			}
			pl.ingest(fr)
		}
	}
}

func (pl *Pipeline) ingest(fr pcm.Frame) {
	if err := pl.recorder.Write(fr); err != nil {
		pl.logger.Warn("record frame", "offset", fr.Offset, "error", err)
	}
	if !fr.Format.Valid() {
		return
	}
	events, err := pl.detector.Feed(fr)
	if err != nil {
		pl.logger.Warn("detect frame", "offset", fr.Offset, "error", err)
		return
	}
	pl.handle(events)
}

func (pl *Pipeline) handle(events []vad.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case vad.SpeechStarted:
			c, err := pl.recorder.Open(ev.Offset)
			if err != nil {
				pl.stats.dropped.Add(1)
				pl.logger.Warn("open utterance", "offset", ev.Offset, "error", err)
				continue
			}
			pl.capture = c
		case vad.SpeechEnded:
			c := pl.capture
			if c == nil {
				continue
			}
			pl.capture = nil
			c.Finalize(ev.Offset, ev.Forced)
			pl.stats.utterances.Add(1)
			if ev.Forced {
				pl.logger.Info("utterance cut at max duration", "capture", c.ID())
			}
			pl.enqueue(c)
		}
	}
}

func (pl *Pipeline) enqueue(c *utterance.Capture) {
	pl.mu.Lock()
	if len(pl.pending) >= pl.cfg.QueueLimit {
		pl.mu.Unlock()
		c.Abandon()
		pl.stats.dropped.Add(1)
		pl.logger.Warn("dispatch queue full, drop utterance", "capture", c.ID(), "limit", pl.cfg.QueueLimit)
		return
	}
	pl.pending = append(pl.pending, c)
	pl.mu.Unlock()
	pl.signal()
}

func (pl *Pipeline) endQueue() {
	pl.mu.Lock()
	pl.ended = true
	pl.mu.Unlock()
	pl.signal()
}

func (pl *Pipeline) signal() {
	select {
	case pl.wake <- struct{}{}:
	default:
	}
}

// next blocks until a capture is queued. It reports false once the queue
// has ended and drained, or the pipeline is closed.
func (pl *Pipeline) next() (*utterance.Capture, bool) {
	for {
		pl.mu.Lock()
		if len(pl.pending) > 0 {
			c := pl.pending[0]
			pl.pending[0] = nil
			pl.pending = pl.pending[1:]
			pl.mu.Unlock()
			return c, true
		}
		ended := pl.ended
		pl.mu.Unlock()
		if ended {
			return nil, false
		}
		select {
		case <-pl.wake:
		case <-pl.ctx.Done():
			return nil, false
		}
	}
}

func (pl *Pipeline) dispatchLoop() {
	defer pl.dropPending()
	for {
		c, ok := pl.next()
		if !ok {
			return
		}
		if pl.ctx.Err() != nil {
			c.Abandon()
			pl.stats.dropped.Add(1)
			continue
		}
		pl.process(c)
	}
}

func (pl *Pipeline) dropPending() {
	pl.mu.Lock()
	pending := pl.pending
	pl.pending = nil
	pl.mu.Unlock()
	for _, c := range pending {
		c.Abandon()
		pl.stats.dropped.Add(1)
	}
}

func (pl *Pipeline) process(c *utterance.Capture) {
	ctx := pl.ctx
	seg, err := c.Wait(ctx)
	if err != nil {
		pl.stats.dropped.Add(1)
		if errors.Is(err, utterance.ErrAbandoned) || ctx.Err() != nil {
			pl.logger.Debug("utterance discarded", "capture", c.ID(), "error", err)
		} else {
			pl.logger.Warn("utterance capture failed", "capture", c.ID(), "error", err)
		}
		return
	}
	if seg.Len() == 0 {
		pl.stats.dropped.Add(1)
		pl.logger.Debug("drop empty utterance", "capture", c.ID())
		return
	}
	log := pl.logger.With("capture", seg.ID, "start", seg.StartOffset, "duration", seg.Duration())

	res, attempts, err := pl.transcribe(ctx, seg)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			pl.stats.dropped.Add(1)
			log.Debug("dispatch cancelled")
		case errors.Is(err, transcribe.ErrEmptyClip):
			pl.stats.dropped.Add(1)
			log.Debug("drop empty clip")
		default:
			pl.stats.failed.Add(1)
			log.Warn("transcription failed", "attempts", attempts, "error", err)
		}
		return
	}
	pl.stats.transcribed.Add(1)

	if res.Text == "" && !pl.cfg.PersistEmpty {
		log.Debug("skip empty transcript")
		return
	}

	clipPath := pl.archive(ctx, seg, log)
	r := &transcript.Record{
		SessionID:       seg.SessionID,
		ParticipantID:   seg.ParticipantID,
		ParticipantName: seg.ParticipantName,
		StartTime:       seg.Start,
		EndTime:         seg.End,
		Text:            res.Text,
		Language:        res.Language,
		Provider:        res.Provider,
		ClipPath:        clipPath,
	}
	if err := pl.deps.Sink.Persist(ctx, r); err != nil {
		if errors.Is(err, transcript.ErrDuplicate) {
			log.Info("transcript already persisted", "id", r.ID)
		} else {
			log.Error("persist transcript", "error", err)
		}
		return
	}
	pl.stats.persisted.Add(1)
	log.Info("transcript persisted", "id", r.ID, "chars", len(r.Text), "attempts", attempts)
}

// transcribe dispatches seg, retrying timeouts and retryable provider
// errors up to the configured number of attempts.
func (pl *Pipeline) transcribe(ctx context.Context, seg *utterance.Segment) (*transcribe.Result, int, error) {
	for attempt := 1; ; attempt++ {
		res, err := pl.deps.Dispatcher.Dispatch(ctx, seg)
		if err == nil {
			return res, attempt, nil
		}
		if attempt >= pl.cfg.RetryAttempts || !retryable(err) || ctx.Err() != nil {
			return nil, attempt, err
		}
		wait := pl.cfg.RetryBackoff * time.Duration(attempt)
		pl.logger.Debug("retry transcription", "capture", seg.ID, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		}
	}
}

func retryable(err error) bool {
	if errors.Is(err, transcribe.ErrTimeout) {
		return true
	}
	var pe *transcribe.ProviderError
	return errors.As(err, &pe) && pe.Retryable()
}

// archive stores the clip when an archive is configured and returns its
// location. Failures are logged; the transcript is still persisted.
func (pl *Pipeline) archive(ctx context.Context, seg *utterance.Segment, log *slog.Logger) string {
	if pl.deps.Archive == nil {
		return ""
	}
	p := storage.ClipPath(seg.SessionID, seg.ParticipantID, seg.Start, seg.ID)
	loc, err := pl.deps.Archive.Put(ctx, p, seg.WAV(), wav.MIMEType)
	if err != nil {
		log.Warn("archive clip", "path", p, "error", err)
		return ""
	}
	return loc
}
