// Package kv is the append-only record store behind the transcript sink.
// Keys are hierarchical paths joined with a separator byte; values are
// opaque. Entries are inserted once and never overwritten, which lets
// callers detect duplicate writes atomically.
//
// Badger is the production backend. Memory exists for tests and for
// ephemeral runs.
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("kv: not found")

	// ErrExists is returned by Insert when the key is already present.
	ErrExists = errors.New("kv: key exists")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("kv: store closed")
)

// Key is a hierarchical path, e.g. Key{"tr", "session-1", "alice", "..."}.
// Segments must not contain the separator byte and must not be empty.
type Key []string

func (k Key) String() string {
	return strings.Join(k, ":")
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is an insert-only key-value store.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Insert stores value under key if the key is absent and returns
	// ErrExists otherwise. The check and the write are atomic.
	Insert(ctx context.Context, key Key, value []byte) error

	// List iterates in lexicographic key order over all entries under
	// prefix. An empty prefix lists everything.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	Close() error
}

// DefaultSeparator joins key segments when no separator is configured.
const DefaultSeparator byte = ':'

// Options configures key encoding.
type Options struct {
	Separator byte
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

func (o *Options) validate(k Key) error {
	if len(k) == 0 {
		return errors.New("kv: empty key")
	}
	s := o.sep()
	for i, seg := range k {
		if seg == "" {
			return fmt.Errorf("kv: key %v: segment %d is empty", k, i)
		}
		if strings.IndexByte(seg, s) >= 0 {
			return fmt.Errorf("kv: key %v: segment %d contains separator %q", k, i, s)
		}
	}
	return nil
}

func (o *Options) encode(k Key) []byte {
	return []byte(strings.Join(k, string(o.sep())))
}

// prefix returns the encoded scan prefix. A trailing separator keeps
// "a:b" from matching "a:bc".
func (o *Options) prefix(k Key) []byte {
	if len(k) == 0 {
		return nil
	}
	return append(o.encode(k), o.sep())
}

func (o *Options) decode(b []byte) Key {
	return strings.Split(string(b), string(o.sep()))
}
