// Package gemini implements a transcribe.Provider on Google Gemini, sending
// the clip inline with a transcription instruction.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/transcribe"
)

// DefaultModel is used when Config.Model is empty. It should not start with
// "models/".
const DefaultModel = "gemini-2.0-flash"

const instruction = "Transcribe the speech in this audio clip verbatim. " +
	"Reply with the transcript only, without commentary. " +
	"If there is no speech, reply with an empty message."

// Config configures the provider.
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// Provider transcribes clips with the Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

var _ transcribe.Provider = (*Provider)(nil)

// New creates a Provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Provider{client: client, model: model}, nil
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Format() pcm.Format { return pcm.L16Mono16K }

func (p *Provider) Transcribe(ctx context.Context, req *transcribe.Request) (*transcribe.Transcription, error) {
	prompt := instruction
	if req.Language != "" {
		prompt += " The speaker's language is " + req.Language + "."
	}
	if req.Prompt != "" {
		prompt += " Context: " + req.Prompt
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: req.MIMEType, Data: req.Audio}},
		},
	}}
	var temperature float32
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return nil, p.providerError(err)
	}
	if len(resp.Candidates) == 0 {
		return nil, &transcribe.ProviderError{Provider: p.Name(), Status: 200, Detail: "no candidates"}
	}
	c := resp.Candidates[0]
	switch c.FinishReason {
	case "", genai.FinishReasonStop, genai.FinishReasonMaxTokens:
	default:
		return nil, &transcribe.ProviderError{Provider: p.Name(), Status: 200, Detail: fmt.Sprintf("finish reason %s", c.FinishReason)}
	}

	var sb strings.Builder
	if c.Content != nil {
		for _, part := range c.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return &transcribe.Transcription{
		Text:     strings.TrimSpace(sb.String()),
		Language: req.Language,
	}, nil
}

func (p *Provider) providerError(err error) error {
	if e, ok := err.(*apierror.APIError); ok {
		return &transcribe.ProviderError{Provider: p.Name(), Status: e.HTTPCode(), Detail: transcribe.Truncate(e.Error()), Err: e.Unwrap()}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		detail := apiErr.Message
		if apiErr.Status != "" {
			detail = apiErr.Status + ": " + detail
		}
		return &transcribe.ProviderError{Provider: p.Name(), Status: apiErr.Code, Detail: transcribe.Truncate(detail), Err: err}
	}
	return err
}
