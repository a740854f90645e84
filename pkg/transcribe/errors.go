package transcribe

import (
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"
)

// Sentinel errors.
var (
	// ErrEmptyClip is returned for a segment without samples.
	ErrEmptyClip = errors.New("transcribe: empty clip")

	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("transcribe: timeout")
)

// TimeoutError reports that the provider did not answer in time.
type TimeoutError struct {
	Provider string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transcribe: %s: no response after %v", e.Provider, e.After)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ProviderError reports a failed provider request. Status is the HTTP status
// when one was received, zero otherwise.
type ProviderError struct {
	Provider string
	Status   int
	Detail   string
	Err      error
}

func (e *ProviderError) Error() string {
	detail := e.Detail
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if e.Status == 0 {
		return fmt.Sprintf("transcribe: %s: %s", e.Provider, detail)
	}
	return fmt.Sprintf("transcribe: %s: http %d: %s", e.Provider, e.Status, detail)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the request may succeed: rate limits,
// server errors and transport failures.
func (e *ProviderError) Retryable() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// maxDetail bounds the response body kept in a ProviderError.
const maxDetail = 2048

// Truncate shortens a provider response body for use as Detail. The cut
// never splits a UTF-8 sequence.
func Truncate(body string) string {
	if len(body) <= maxDetail {
		return body
	}
	cut := maxDetail
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}
