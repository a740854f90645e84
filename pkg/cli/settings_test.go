package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testSettings struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Name    string        `yaml:"name" json:"name"`
	Keep    string        `yaml:"keep" json:"keep"`
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "s.yaml")
	os.WriteFile(yamlPath, []byte("timeout: 1500ms\nname: yaml\n"), 0644)
	jsonPath := filepath.Join(dir, "s.json")
	os.WriteFile(jsonPath, []byte(`{"name": "json"}`), 0644)
	plainPath := filepath.Join(dir, "settings")
	os.WriteFile(plainPath, []byte(`{"name": "guessed"}`), 0644)

	tests := []struct {
		path    string
		name    string
		timeout time.Duration
	}{
		{yamlPath, "yaml", 1500 * time.Millisecond},
		{jsonPath, "json", 0},
		{plainPath, "guessed", 0},
	}
	for _, tt := range tests {
		s := testSettings{Keep: "default"}
		if err := LoadSettings(tt.path, &s); err != nil {
			t.Fatalf("LoadSettings(%s): %v", tt.path, err)
		}
		if s.Name != tt.name || s.Timeout != tt.timeout || s.Keep != "default" {
			t.Errorf("LoadSettings(%s) = %+v", filepath.Base(tt.path), s)
		}
	}
}

func TestLoadSettings_Errors(t *testing.T) {
	dir := t.TempDir()
	if err := LoadSettings(filepath.Join(dir, "missing.yaml"), &testSettings{}); err == nil {
		t.Error("missing file should fail")
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"name":`), 0644)
	if err := LoadSettings(bad, &testSettings{}); err == nil {
		t.Error("truncated JSON should fail")
	}
}
