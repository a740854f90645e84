// Package storage archives finalized utterance clips. Paths are
// forward-slash separated and relative to the store root; each Put returns
// a location string that the transcript record keeps so the audio can be
// found again.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

// ErrNotExist is wrapped by Open when the clip is missing.
var ErrNotExist = errors.New("storage: clip does not exist")

// ClipStore stores opaque audio blobs. Implementations must be safe for
// concurrent use.
type ClipStore interface {
	// Put writes data at p, replacing any previous content, and returns the
	// clip location.
	Put(ctx context.Context, p string, data []byte, contentType string) (string, error)

	// Open opens the clip at p. The caller closes the reader.
	Open(ctx context.Context, p string) (io.ReadCloser, error)

	Exists(ctx context.Context, p string) (bool, error)
}

// ClipPath is the archive path of an utterance:
// <session>/<participant>/<start unix ms>-<capture id>.wav.
// Identifiers are escaped so they cannot introduce path segments.
func ClipPath(sessionID, participantID string, start time.Time, captureID string) string {
	return path.Join(
		url.PathEscape(sessionID),
		url.PathEscape(participantID),
		fmt.Sprintf("%d-%s.wav", start.UnixMilli(), url.PathEscape(captureID)),
	)
}

func cleanPath(p string) (string, error) {
	c := path.Clean("/" + p)[1:]
	if c == "" || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("storage: invalid path %q", p)
	}
	return c, nil
}
