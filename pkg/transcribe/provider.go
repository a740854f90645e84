package transcribe

import (
	"context"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

// Request is one clip to transcribe.
type Request struct {
	// Audio is the clip as a complete file, MIMEType says which kind.
	Audio    []byte
	MIMEType string
	Format   pcm.Format

	// Language is an ISO-639-1 hint; empty lets the provider detect it.
	Language string

	// Prompt is optional context such as vocabulary or the previous line.
	Prompt string
}

// Transcription is a provider answer. Text may be empty when the provider
// heard nothing.
type Transcription struct {
	Text     string
	Language string
}

// Provider is a speech-to-text backend.
type Provider interface {
	// Name identifies the provider in errors, logs and records.
	Name() string

	// Format is the sample rate the provider wants; clips are resampled to it.
	Format() pcm.Format

	// Transcribe performs a single request. Implementations must not retry
	// and must honor ctx.
	Transcribe(ctx context.Context, req *Request) (*Transcription, error)
}
