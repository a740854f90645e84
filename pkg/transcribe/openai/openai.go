// Package openai implements a transcribe.Provider on the OpenAI audio
// transcription endpoint (Whisper and the gpt-4o transcribe models).
package openai

import (
	"bytes"
	"context"
	"errors"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/transcribe"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "whisper-1"

// Config configures the provider.
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// Provider transcribes clips with the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

var _ transcribe.Provider = (*Provider)(nil)

// New creates a Provider. Extra request options are appended after the ones
// derived from cfg. The client never retries on its own.
func New(cfg Config, opts ...option.RequestOption) *Provider {
	ro := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		ro = append(ro, option.WithBaseURL(cfg.BaseURL))
	}
	ro = append(ro, opts...)
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Provider{client: oai.NewClient(ro...), model: model}
}

func (p *Provider) Name() string { return "openai" }

// Format returns 16kHz, the rate Whisper works at internally.
func (p *Provider) Format() pcm.Format { return pcm.L16Mono16K }

func (p *Provider) Transcribe(ctx context.Context, req *transcribe.Request) (*transcribe.Transcription, error) {
	params := oai.AudioTranscriptionNewParams{
		File:           oai.File(bytes.NewReader(req.Audio), "audio.wav", req.MIMEType),
		Model:          oai.AudioModel(p.model),
		ResponseFormat: oai.AudioResponseFormatJSON,
	}
	if req.Language != "" {
		params.Language = oai.String(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = oai.String(req.Prompt)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			detail := apiErr.RawJSON()
			if detail == "" {
				detail = apiErr.Error()
			}
			return nil, &transcribe.ProviderError{
				Provider: p.Name(),
				Status:   apiErr.StatusCode,
				Detail:   transcribe.Truncate(detail),
				Err:      err,
			}
		}
		return nil, err
	}
	return &transcribe.Transcription{
		Text:     strings.TrimSpace(resp.Text),
		Language: req.Language,
	}, nil
}
