package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

// ErrSupervisorClosed is returned by Join after Close.
var ErrSupervisorClosed = errors.New("pipeline: supervisor closed")

// Supervisor owns the live pipelines, keyed by participant ID. It is safe
// for concurrent use; join, leave and frame routing may race freely.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config
	deps   Deps
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	wg sync.WaitGroup
}

type entry struct {
	pipeline *Pipeline
	input    *ChanSource // set when the supervisor feeds the pipeline itself
}

// NewSupervisor validates cfg and deps once for all future joins.
func NewSupervisor(cfg Config, deps Deps) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		deps:    deps,
		logger:  deps.logger(),
		entries: make(map[string]*entry),
	}, nil
}

// Join starts a pipeline for p reading from src. When src is nil the
// supervisor creates a ChanSource fed through Push. A participant that is
// already joined is replaced: the old pipeline is closed first.
//
// If the detector or recorder cannot be built the error is returned and
// the participant stays absent until the next Join.
func (s *Supervisor) Join(p Participant, src Source) (*Pipeline, error) {
	p = p.withDefaults()
	var input *ChanSource
	if src == nil {
		input = NewChanSource(DefaultSourceBuffer)
		src = input
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSupervisorClosed
	}
	if old, ok := s.entries[p.ID]; ok {
		s.logger.Info("participant rejoined, replace pipeline", "participant", p.ID)
		s.disposeLocked(p.ID, old)
	}

	pl, err := New(s.ctx, p, src, s.cfg, s.deps)
	if err != nil {
		s.logger.Error("participant pipeline init failed", "participant", p.ID, "error", err)
		return nil, err
	}
	s.entries[p.ID] = &entry{pipeline: pl, input: input}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-pl.Done()
		s.mu.Lock()
		if e, ok := s.entries[p.ID]; ok && e.pipeline == pl {
			delete(s.entries, p.ID)
		}
		s.mu.Unlock()
	}()
	return pl, nil
}

// Leave disposes of the participant's pipeline, cancelling its in-flight
// work. It does not wait for the pipeline to exit and reports whether the
// participant was present.
func (s *Supervisor) Leave(participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[participantID]
	if !ok {
		return false
	}
	s.disposeLocked(participantID, e)
	s.logger.Info("participant left", "participant", participantID)
	return true
}

func (s *Supervisor) disposeLocked(id string, e *entry) {
	delete(s.entries, id)
	// Cancel before closing the input so the pipeline does not mistake
	// the leave for a clean end of stream.
	e.pipeline.Close()
	if e.input != nil {
		e.input.Close()
	}
}

// EndStream closes the supervisor-owned source of a participant. Unlike
// Leave, the utterance in progress is finalized and every queued utterance
// is still transcribed before the pipeline exits. It reports false for
// unknown participants and those joined with their own source.
func (s *Supervisor) EndStream(participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[participantID]
	if !ok || e.input == nil {
		return false
	}
	e.input.Close()
	return true
}

// Push routes a frame to a participant joined without an explicit source.
// It reports false if the participant is unknown, was joined with its own
// source, or its buffer is full.
func (s *Supervisor) Push(participantID string, fr pcm.Frame) bool {
	s.mu.Lock()
	e, ok := s.entries[participantID]
	s.mu.Unlock()
	if !ok || e.input == nil {
		return false
	}
	return e.input.Push(fr)
}

// Pipeline returns the live pipeline of a participant.
func (s *Supervisor) Pipeline(participantID string) (*Pipeline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[participantID]
	if !ok {
		return nil, false
	}
	return e.pipeline, true
}

// Participants returns the joined participants ordered by ID.
func (s *Supervisor) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := slices.Sorted(maps.Keys(s.entries))
	out := make([]Participant, len(ids))
	for i, id := range ids {
		out[i] = s.entries[id].pipeline.Participant()
	}
	return out
}

// Close disposes of every pipeline and rejects further joins. It does not
// wait; use Wait.
func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, e := range s.entries {
		s.disposeLocked(id, e)
	}
	s.cancel()
}

// Wait blocks until every pipeline started by s has exited or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
