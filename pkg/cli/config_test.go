package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"sk-1234567890abcdef", "sk-1***********cdef"},
		{"env:OPENAI_API_KEY", "env:OPENAI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := MaskAPIKey(tt.key)
			if got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestSecret(t *testing.T) {
	t.Setenv("SCRIBE_TEST_KEY", "sk-from-env")

	got, err := Secret("env:SCRIBE_TEST_KEY")
	if err != nil || got != "sk-from-env" {
		t.Fatalf("Secret(env) = %q, %v", got, err)
	}
	got, err = Secret("sk-literal")
	if err != nil || got != "sk-literal" {
		t.Fatalf("Secret(literal) = %q, %v", got, err)
	}
	if _, err := Secret("env:SCRIBE_TEST_UNSET"); err == nil {
		t.Fatal("Secret of an unset variable should fail")
	}
}

func TestContext_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ctx     Context
		wantErr string
	}{
		{"openai", Context{Provider: "openai"}, ""},
		{"gemini", Context{Provider: "gemini"}, ""},
		{"httpapi", Context{Provider: "httpapi", BaseURL: "http://asr:9000/asr"}, ""},
		{"unknown provider", Context{Provider: "deepgram"}, "unknown provider"},
		{"httpapi without url", Context{Provider: "httpapi"}, "requires base_url"},
		{"local archive", Context{Provider: "openai", Archive: &Archive{Kind: "local", Dir: "/tmp/clips"}}, ""},
		{"local archive without dir", Context{Provider: "openai", Archive: &Archive{Kind: "local"}}, "requires dir"},
		{"s3 archive without bucket", Context{Provider: "openai", Archive: &Archive{Kind: "s3"}}, "requires bucket"},
		{"unknown archive", Context{Provider: "openai", Archive: &Archive{Kind: "ftp"}}, "unknown archive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ctx.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestContext_Extra(t *testing.T) {
	ctx := &Context{Name: "test"}
	if got := ctx.GetExtra("prompt"); got != "" {
		t.Errorf("GetExtra on nil map = %q, want empty string", got)
	}
	ctx.SetExtra("prompt", "names: Alice, Bob")
	if got := ctx.GetExtra("prompt"); got != "names: Alice, Bob" {
		t.Errorf("GetExtra(prompt) = %q", got)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Contexts) != 0 || cfg.Path() != path {
		t.Fatalf("cfg = %+v", cfg)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("LoadConfig should not create the file")
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if err := cfg.AddContext("dev", &Context{Provider: "openai", APIKey: "env:OPENAI_API_KEY", Language: "ko"}); err != nil {
		t.Fatalf("AddContext(dev): %v", err)
	}
	if err := cfg.AddContext("lab", &Context{
		Provider: "httpapi",
		BaseURL:  "http://asr:9000/asr",
		Archive:  &Archive{Kind: "s3", Bucket: "clips", Endpoint: "http://minio:9000", PathStyle: true},
	}); err != nil {
		t.Fatalf("AddContext(lab): %v", err)
	}
	if err := cfg.AddContext("bad", &Context{Provider: "nope"}); err == nil {
		t.Fatal("AddContext with an invalid context should fail")
	}
	if cfg.CurrentContext != "dev" {
		t.Fatalf("CurrentContext = %q, want the first added context", cfg.CurrentContext)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := loaded.ListContexts(); len(got) != 2 || got[0] != "dev" || got[1] != "lab" {
		t.Fatalf("ListContexts() = %v", got)
	}
	lab, err := loaded.GetContext("lab")
	if err != nil {
		t.Fatalf("GetContext(lab): %v", err)
	}
	if lab.Name != "lab" || lab.Archive == nil || !lab.Archive.PathStyle || lab.Archive.Bucket != "clips" {
		t.Fatalf("lab = %+v", lab)
	}

	dev, err := loaded.ResolveContext("")
	if err != nil || dev.Language != "ko" || dev.APIKey != "env:OPENAI_API_KEY" {
		t.Fatalf("ResolveContext(\"\") = %+v, %v", dev, err)
	}

	if err := loaded.UseContext("lab"); err != nil {
		t.Fatalf("UseContext: %v", err)
	}
	if err := loaded.UseContext("missing"); err == nil {
		t.Fatal("UseContext(missing) should fail")
	}
	if err := loaded.DeleteContext("lab"); err != nil {
		t.Fatalf("DeleteContext: %v", err)
	}
	if loaded.CurrentContext != "" {
		t.Fatalf("CurrentContext = %q after deleting it", loaded.CurrentContext)
	}
	if _, err := loaded.ResolveContext(""); err == nil {
		t.Fatal("ResolveContext with no current context should fail")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("contexts: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig of invalid YAML should fail")
	}
}
