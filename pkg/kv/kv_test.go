package kv_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/haivivi/scribe/pkg/kv"
)

type factory func(t *testing.T, opts *kv.Options) kv.Store

func stores() map[string]factory {
	return map[string]factory{
		"memory": func(t *testing.T, opts *kv.Options) kv.Store {
			s := kv.NewMemory(opts)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"badger": func(t *testing.T, opts *kv.Options) kv.Store {
			s, err := kv.NewBadger(kv.BadgerOptions{Options: opts, InMemory: true})
			if err != nil {
				t.Fatalf("NewBadger: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func each(t *testing.T, fn func(t *testing.T, newStore factory)) {
	for name, f := range stores() {
		t.Run(name, func(t *testing.T) { fn(t, f) })
	}
}

func TestInsertGet(t *testing.T) {
	each(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, nil)
		key := kv.Key{"tr", "s1", "alice", "0001"}

		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Get = %v, want ErrNotFound", err)
		}
		if err := s.Insert(ctx, key, []byte("hello")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "hello" {
			t.Fatalf("Get = %q, want %q", got, "hello")
		}

		if err := s.Insert(ctx, key, []byte("world")); !errors.Is(err, kv.ErrExists) {
			t.Fatalf("second Insert = %v, want ErrExists", err)
		}
		got, _ = s.Get(ctx, key)
		if string(got) != "hello" {
			t.Fatalf("value after duplicate insert = %q, want %q", got, "hello")
		}
	})
}

func TestList(t *testing.T) {
	each(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, nil)
		keys := []kv.Key{
			{"tr", "s1", "bob", "0002"},
			{"tr", "s1", "alice", "0001"},
			{"tr", "s10", "carol", "0001"},
			{"tr", "s2", "dave", "0003"},
		}
		for i, k := range keys {
			if err := s.Insert(ctx, k, fmt.Appendf(nil, "v%d", i)); err != nil {
				t.Fatalf("Insert %v: %v", k, err)
			}
		}

		var got []string
		for e, err := range s.List(ctx, kv.Key{"tr", "s1"}) {
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			got = append(got, e.Key.String()+"="+string(e.Value))
		}
		want := []string{"tr:s1:alice:0001=v1", "tr:s1:bob:0002=v0"}
		if !slices.Equal(got, want) {
			t.Fatalf("List = %v, want %v", got, want)
		}

		n := 0
		for _, err := range s.List(ctx, nil) {
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			n++
		}
		if n != len(keys) {
			t.Fatalf("List(nil) yielded %d entries, want %d", n, len(keys))
		}
	})
}

func TestListEarlyStop(t *testing.T) {
	each(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, nil)
		for i := range 5 {
			s.Insert(ctx, kv.Key{"a", fmt.Sprint(i)}, nil)
		}
		n := 0
		for range s.List(ctx, kv.Key{"a"}) {
			n++
			if n == 2 {
				break
			}
		}
		if n != 2 {
			t.Fatalf("iterated %d entries, want 2", n)
		}
	})
}

func TestConcurrentInsertSameKey(t *testing.T) {
	each(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, nil)
		key := kv.Key{"tr", "s1", "alice", "0001"}

		var wins, dups atomic.Int32
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Insert(ctx, key, fmt.Appendf(nil, "%d", i))
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, kv.ErrExists):
					dups.Add(1)
				default:
					t.Errorf("Insert: %v", err)
				}
			}()
		}
		wg.Wait()
		if wins.Load() != 1 || dups.Load() != 15 {
			t.Fatalf("wins = %d, dups = %d, want 1 and 15", wins.Load(), dups.Load())
		}
	})
}

func TestKeyValidation(t *testing.T) {
	each(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, nil)
		for _, k := range []kv.Key{nil, {"a", ""}, {"a:b"}} {
			if err := s.Insert(ctx, k, nil); err == nil {
				t.Errorf("Insert(%q) should fail", []string(k))
			}
		}
	})
}

func TestCustomSeparator(t *testing.T) {
	each(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, &kv.Options{Separator: '/'})
		if err := s.Insert(ctx, kv.Key{"a:b", "c"}, []byte("x")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		for e, err := range s.List(ctx, kv.Key{"a:b"}) {
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if !slices.Equal(e.Key, kv.Key{"a:b", "c"}) {
				t.Fatalf("Key = %v, want [a:b c]", e.Key)
			}
		}
	})
}

func TestValueIsolation(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory(nil)
	val := []byte("original")
	s.Insert(ctx, kv.Key{"k"}, val)
	val[0] = 'X'
	got, _ := s.Get(ctx, kv.Key{"k"})
	if string(got) != "original" {
		t.Fatalf("stored value mutated: %q", got)
	}
}

func TestBadgerDirRequired(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("NewBadger without Dir should fail")
	}
}

func TestBadgerReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	if err := s.Insert(ctx, kv.Key{"tr", "1"}, []byte("persisted")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if err := s.Insert(ctx, kv.Key{"tr", "1"}, []byte("again")); !errors.Is(err, kv.ErrExists) {
		t.Fatalf("Insert after reopen = %v, want ErrExists", err)
	}
}
