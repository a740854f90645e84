package transcript

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/api/iterator"

	"github.com/haivivi/scribe/pkg/kv"
)

// ErrDuplicate reports that a record with the same session, participant,
// start and end time already exists.
var ErrDuplicate = errors.New("transcript: duplicate record")

// PersistenceError wraps a failed write. Nothing is rolled back or
// retried; the caller logs it and the transcript is lost.
type PersistenceError struct {
	SessionID     string
	ParticipantID string
	Err           error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("transcript: persist %s/%s: %v", e.SessionID, e.ParticipantID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Sink is the write side used by the pipeline. Implementations must be
// safe for concurrent use.
type Sink interface {
	Persist(ctx context.Context, r *Record) error
}

const keyPrefix = "tr"

// KVSink stores records in a kv.Store.
type KVSink struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

var _ Sink = (*KVSink)(nil)

// Option configures a KVSink.
type Option func(*KVSink)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *KVSink) { s.logger = l }
}

// WithClock overrides time.Now for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *KVSink) { s.now = now }
}

// NewKVSink creates a sink over store. The sink does not own the store.
func NewKVSink(store kv.Store, opts ...Option) *KVSink {
	s := &KVSink{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recordKey maps the dedupe tuple to a key. Times are zero-padded so keys
// sort chronologically within a participant.
func recordKey(r *Record) kv.Key {
	return kv.Key{
		keyPrefix,
		url.QueryEscape(r.SessionID),
		url.QueryEscape(r.ParticipantID),
		fmt.Sprintf("%020d", r.StartTime.UnixNano()),
		fmt.Sprintf("%020d", r.EndTime.UnixNano()),
	}
}

// Persist inserts r. A missing ID is filled with a new UUID and a zero
// CreatedAt with the current time; both are written back to r. On
// ErrDuplicate they are replaced with those of the stored record.
func (s *KVSink) Persist(ctx context.Context, r *Record) error {
	perr := func(err error) error {
		return &PersistenceError{SessionID: r.SessionID, ParticipantID: r.ParticipantID, Err: err}
	}
	if err := r.validate(); err != nil {
		return perr(err)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	data, err := msgpack.Marshal(r)
	if err != nil {
		return perr(err)
	}
	key := recordKey(r)
	err = s.store.Insert(ctx, key, data)
	if errors.Is(err, kv.ErrExists) {
		s.adoptStored(ctx, key, r)
		return perr(ErrDuplicate)
	}
	if err != nil {
		return perr(err)
	}
	s.logger.Debug("transcript persisted",
		"id", r.ID,
		"session", r.SessionID,
		"participant", r.ParticipantID,
		"chars", len(r.Text))
	return nil
}

// adoptStored copies the identity of the record stored under key into r.
func (s *KVSink) adoptStored(ctx context.Context, key kv.Key, r *Record) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("read duplicate transcript", "key", key.String(), "error", err)
		return
	}
	var stored Record
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("decode duplicate transcript", "key", key.String(), "error", err)
		return
	}
	r.ID = stored.ID
	r.CreatedAt = stored.CreatedAt
}

// Records returns an iterator over the records of a session, ordered by
// participant and start time. Malformed entries are skipped. Call Stop
// when abandoning the iterator before it returns iterator.Done.
func (s *KVSink) Records(ctx context.Context, sessionID string) *RecordIterator {
	var prefix kv.Key
	if sessionID == "" {
		prefix = kv.Key{keyPrefix}
	} else {
		prefix = kv.Key{keyPrefix, url.QueryEscape(sessionID)}
	}
	next, stop := iter.Pull2(s.store.List(ctx, prefix))
	return &RecordIterator{next: next, stop: stop, logger: s.logger}
}

// RecordIterator yields records one at a time.
type RecordIterator struct {
	next   func() (kv.Entry, error, bool)
	stop   func()
	logger *slog.Logger
	done   bool
}

// Next returns the next record, or iterator.Done when exhausted.
func (it *RecordIterator) Next() (*Record, error) {
	for !it.done {
		e, err, ok := it.next()
		if !ok {
			it.Stop()
			break
		}
		if err != nil {
			it.Stop()
			return nil, err
		}
		var r Record
		if err := msgpack.Unmarshal(e.Value, &r); err != nil {
			it.logger.Warn("skip malformed transcript record", "key", e.Key.String(), "error", err)
			continue
		}
		return &r, nil
	}
	return nil, iterator.Done
}

// Stop releases the underlying scan. It is safe to call more than once.
func (it *RecordIterator) Stop() {
	if !it.done {
		it.done = true
		it.stop()
	}
}

// Collect drains it into a slice.
func Collect(it *RecordIterator) ([]*Record, error) {
	defer it.Stop()
	var out []*Record
	for {
		r, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}
