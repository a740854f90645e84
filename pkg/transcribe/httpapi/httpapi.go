// Package httpapi implements a transcribe.Provider for self-hosted
// transcription servers that accept a multipart WAV upload and answer with
// JSON. The transcript is extracted from the response with a jq expression.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"

	"github.com/itchyny/gojq"
	"github.com/kaptinlin/jsonrepair"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/transcribe"
)

// Response bodies beyond this size are rejected.
const maxResponseSize = 1 << 20

// Config configures the provider.
type Config struct {
	// Name is reported as the provider name. Defaults to "httpapi".
	Name string `yaml:"name,omitempty"`

	URL string `yaml:"url"`

	// FileField is the multipart field carrying the WAV. Defaults to "file".
	FileField string `yaml:"file_field,omitempty"`

	// Fields are extra multipart form values. Values support ${VAR}
	// expansion.
	Fields map[string]string `yaml:"fields,omitempty"`

	// LanguageField receives the request language when set.
	LanguageField string `yaml:"language_field,omitempty"`

	// Headers support ${VAR} expansion.
	Headers map[string]string `yaml:"headers,omitempty"`

	// TextQuery extracts the transcript. Defaults to ".text".
	TextQuery string `yaml:"text_query,omitempty"`

	// LanguageQuery optionally extracts the detected language.
	LanguageQuery string `yaml:"language_query,omitempty"`

	// SampleRate the server expects. Defaults to 16000.
	SampleRate int `yaml:"sample_rate,omitempty"`
}

// Provider posts clips to a configured HTTP endpoint.
type Provider struct {
	cfg       Config
	format    pcm.Format
	textQ     *gojq.Query
	languageQ *gojq.Query
	client    *http.Client
}

var _ transcribe.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// New validates cfg and creates a Provider.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if cfg.URL == "" {
		return nil, errors.New("httpapi: url is required")
	}
	if cfg.Name == "" {
		cfg.Name = "httpapi"
	}
	if cfg.FileField == "" {
		cfg.FileField = "file"
	}
	if cfg.TextQuery == "" {
		cfg.TextQuery = ".text"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	format, err := pcm.ForRate(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("httpapi: %w", err)
	}
	p := &Provider{cfg: cfg, format: format, client: http.DefaultClient}
	if p.textQ, err = gojq.Parse(cfg.TextQuery); err != nil {
		return nil, fmt.Errorf("httpapi: invalid text_query %q: %w", cfg.TextQuery, err)
	}
	if cfg.LanguageQuery != "" {
		if p.languageQ, err = gojq.Parse(cfg.LanguageQuery); err != nil {
			return nil, fmt.Errorf("httpapi: invalid language_query %q: %w", cfg.LanguageQuery, err)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Format() pcm.Format { return p.format }

func (p *Provider) Transcribe(ctx context.Context, req *transcribe.Request) (*transcribe.Transcription, error) {
	body, contentType, err := p.form(req)
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, expandEnv(p.cfg.URL), body)
	if err != nil {
		return nil, fmt.Errorf("httpapi: create request: %w", err)
	}
	hreq.Header.Set("Content-Type", contentType)
	hreq.Header.Set("Accept", "application/json")
	for k, v := range p.cfg.Headers {
		hreq.Header.Set(k, expandEnv(v))
	}

	resp, err := p.client.Do(hreq)
	if err != nil {
		return nil, &transcribe.ProviderError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, &transcribe.ProviderError{Provider: p.Name(), Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &transcribe.ProviderError{
			Provider: p.Name(),
			Status:   resp.StatusCode,
			Detail:   transcribe.Truncate(string(data)),
		}
	}
	if len(data) > maxResponseSize {
		return nil, &transcribe.ProviderError{Provider: p.Name(), Status: resp.StatusCode, Detail: "response too large"}
	}

	var doc any
	if err := unmarshalJSON(data, &doc); err != nil {
		return nil, &transcribe.ProviderError{
			Provider: p.Name(),
			Status:   resp.StatusCode,
			Detail:   transcribe.Truncate(string(data)),
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}
	text, err := runString(p.textQ, doc)
	if err != nil {
		return nil, &transcribe.ProviderError{Provider: p.Name(), Status: resp.StatusCode, Err: fmt.Errorf("text_query: %w", err)}
	}
	out := &transcribe.Transcription{Text: text, Language: req.Language}
	if p.languageQ != nil {
		if lang, err := runString(p.languageQ, doc); err == nil && lang != "" {
			out.Language = lang
		}
	}
	return out, nil
}

func (p *Provider) form(req *transcribe.Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range p.cfg.Fields {
		if err := mw.WriteField(k, expandEnv(v)); err != nil {
			return nil, "", fmt.Errorf("httpapi: write field %s: %w", k, err)
		}
	}
	if p.cfg.LanguageField != "" && req.Language != "" {
		if err := mw.WriteField(p.cfg.LanguageField, req.Language); err != nil {
			return nil, "", fmt.Errorf("httpapi: write field %s: %w", p.cfg.LanguageField, err)
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="audio.wav"`, p.cfg.FileField))
	h.Set("Content-Type", req.MIMEType)
	fw, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("httpapi: create file part: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return nil, "", fmt.Errorf("httpapi: write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("httpapi: close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// runString returns the first result of q as a string. null yields "".
func runString(q *gojq.Query, input any) (string, error) {
	iter := q.Run(input)
	v, ok := iter.Next()
	if !ok {
		return "", nil
	}
	switch v := v.(type) {
	case error:
		return "", v
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("result is %T, want string", v)
	}
}

// unmarshalJSON retries with a repaired document on syntax errors. Some
// servers stream partial JSON or append trailing commas.
func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

func expandEnv(s string) string {
	return os.Expand(s, os.Getenv)
}
