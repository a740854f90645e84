package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".scribe"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config represents the scribe configuration file.
type Config struct {
	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one named deployment profile.
type Context struct {
	Name string `yaml:"name"`

	// Provider selects the transcription backend: openai, gemini or
	// httpapi.
	Provider string `yaml:"provider"`

	// APIKey for openai and gemini. "env:NAME" reads $NAME.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint. For httpapi it is the
	// upload URL.
	BaseURL string `yaml:"base_url,omitempty"`

	Model    string `yaml:"model,omitempty"`
	Language string `yaml:"language,omitempty"`

	// Timeout is the per-request timeout in seconds (optional)
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries is the total number of attempts per utterance (optional)
	MaxRetries int `yaml:"max_retries,omitempty"`

	// DataDir holds the transcript store. Defaults to
	// ~/.scribe/data/<context>.
	DataDir string `yaml:"data_dir,omitempty"`

	// Archive keeps utterance clips when set.
	Archive *Archive `yaml:"archive,omitempty"`

	// Listen is the ingest server address for "scribe serve".
	Listen string `yaml:"listen,omitempty"`

	// Extra stores provider-specific settings
	Extra map[string]string `yaml:"extra,omitempty"`
}

// Archive configures clip storage.
type Archive struct {
	// Kind is "local" or "s3".
	Kind string `yaml:"kind"`

	// Dir is the local archive root.
	Dir string `yaml:"dir,omitempty"`

	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`

	// AccessKey and SecretKey accept "env:NAME".
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// LoadConfig loads the configuration from customPath, or from
// ~/.scribe/config.yaml when it is empty. A missing file yields an empty
// configuration that is created on the first Save.
func LoadConfig(customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		paths, err := NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = paths.ConfigFile()
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		ctx.Name = name
	}
	cfg.configPath = configPath
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// AddContext adds or replaces a context
func (c *Config) AddContext(name string, ctx *Context) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the context by name, or current context if name is empty
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		if c.CurrentContext == "" {
			return nil, fmt.Errorf("no current context set")
		}
		name = c.CurrentContext
	}
	return c.GetContext(name)
}

// ListContexts returns all context names, sorted
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Providers lists the accepted Context.Provider values.
var Providers = []string{"openai", "gemini", "httpapi"}

// Validate checks the provider and archive settings.
func (ctx *Context) Validate() error {
	if !slices.Contains(Providers, ctx.Provider) {
		return fmt.Errorf("unknown provider %q (want one of %s)", ctx.Provider, strings.Join(Providers, ", "))
	}
	if ctx.Provider == "httpapi" && ctx.BaseURL == "" {
		return fmt.Errorf("provider httpapi requires base_url")
	}
	if a := ctx.Archive; a != nil {
		switch a.Kind {
		case "local":
			if a.Dir == "" {
				return fmt.Errorf("local archive requires dir")
			}
		case "s3":
			if a.Bucket == "" {
				return fmt.Errorf("s3 archive requires bucket")
			}
		default:
			return fmt.Errorf("unknown archive kind %q", a.Kind)
		}
	}
	return nil
}

// GetExtra returns an extra value for the context
func (ctx *Context) GetExtra(key string) string {
	if ctx.Extra == nil {
		return ""
	}
	return ctx.Extra[key]
}

// SetExtra sets an extra value for the context
func (ctx *Context) SetExtra(key, value string) {
	if ctx.Extra == nil {
		ctx.Extra = make(map[string]string)
	}
	ctx.Extra[key] = value
}

// Secret resolves a configured secret. "env:NAME" reads the environment
// variable NAME and fails if it is unset; other values are returned as is.
func Secret(v string) (string, error) {
	name, ok := strings.CutPrefix(v, "env:")
	if !ok {
		return v, nil
	}
	s, ok := os.LookupEnv(name)
	if !ok || s == "" {
		return "", fmt.Errorf("environment variable %s is not set", name)
	}
	return s, nil
}

// MaskAPIKey masks the API key for display. Environment references are
// shown as is.
func MaskAPIKey(key string) string {
	if strings.HasPrefix(key, "env:") {
		return key
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
