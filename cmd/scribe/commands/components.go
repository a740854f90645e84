package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/haivivi/scribe/pkg/cli"
	"github.com/haivivi/scribe/pkg/kv"
	"github.com/haivivi/scribe/pkg/pipeline"
	"github.com/haivivi/scribe/pkg/storage"
	"github.com/haivivi/scribe/pkg/transcribe"
	"github.com/haivivi/scribe/pkg/transcribe/gemini"
	"github.com/haivivi/scribe/pkg/transcribe/httpapi"
	"github.com/haivivi/scribe/pkg/transcribe/openai"
)

// Settings are the tuning knobs read from the -f file. Context values
// seed them; the file overrides.
type Settings struct {
	Pipeline   pipeline.Config   `yaml:"pipeline" json:"pipeline"`
	Transcribe transcribe.Config `yaml:"transcribe" json:"transcribe"`

	// HTTP configures the httpapi provider beyond its URL.
	HTTP httpapi.Config `yaml:"http" json:"http"`
}

func loadSettings(c *cli.Context) (*Settings, error) {
	s := &Settings{Pipeline: pipeline.DefaultConfig()}
	s.Transcribe.Language = c.Language
	s.Transcribe.Prompt = c.GetExtra("prompt")
	if c.Timeout > 0 {
		s.Transcribe.Timeout = time.Duration(c.Timeout) * time.Second
	}
	if c.MaxRetries > 0 {
		s.Pipeline.RetryAttempts = c.MaxRetries
	}
	if settingsFile != "" {
		if err := cli.LoadSettings(settingsFile, s); err != nil {
			return nil, err
		}
	}
	if err := s.Pipeline.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func newProvider(ctx context.Context, c *cli.Context, s *Settings) (transcribe.Provider, error) {
	key, err := cli.Secret(c.APIKey)
	if err != nil && c.Provider != "httpapi" {
		return nil, fmt.Errorf("api_key: %w", err)
	}
	switch c.Provider {
	case "openai":
		return openai.New(openai.Config{APIKey: key, BaseURL: c.BaseURL, Model: c.Model}), nil
	case "gemini":
		return gemini.New(ctx, gemini.Config{APIKey: key, BaseURL: c.BaseURL, Model: c.Model})
	case "httpapi":
		cfg := s.HTTP
		if cfg.URL == "" {
			cfg.URL = c.BaseURL
		}
		return httpapi.New(cfg)
	}
	return nil, fmt.Errorf("unknown provider %q", c.Provider)
}

// openStore opens the context's transcript database. An empty dir is
// resolved to ~/.scribe/data/<context>.
func openStore(c *cli.Context, logger *slog.Logger) (*kv.Badger, error) {
	dir := c.DataDir
	if dir == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return nil, err
		}
		dir = paths.DataDir(c.Name)
	}
	if err := cli.EnsureDir(dir); err != nil {
		return nil, err
	}
	return kv.NewBadger(kv.BadgerOptions{Dir: dir, Logger: logger})
}

// openArchive returns nil when the context keeps no clips.
func openArchive(c *cli.Context) (storage.ClipStore, error) {
	a := c.Archive
	if a == nil {
		return nil, nil
	}
	switch a.Kind {
	case "local":
		return storage.NewLocal(a.Dir)
	case "s3":
		client, err := newS3Client(a)
		if err != nil {
			return nil, err
		}
		return storage.NewS3(client, a.Bucket, a.Prefix), nil
	}
	return nil, fmt.Errorf("unknown archive kind %q", a.Kind)
}

func newS3Client(a *cli.Archive) (*s3.Client, error) {
	opts := s3.Options{
		Region:       a.Region,
		UsePathStyle: a.PathStyle,
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if a.Endpoint != "" {
		opts.BaseEndpoint = aws.String(a.Endpoint)
	}
	if a.AccessKey != "" {
		ak, err := cli.Secret(a.AccessKey)
		if err != nil {
			return nil, fmt.Errorf("archive access_key: %w", err)
		}
		sk, err := cli.Secret(a.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("archive secret_key: %w", err)
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: ak, SecretAccessKey: sk, Source: "scribe"}, nil
			}))
	}
	return s3.New(opts), nil
}
