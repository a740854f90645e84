package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPaths(t *testing.T) {
	paths, err := NewPaths()
	if err != nil {
		t.Fatalf("NewPaths error: %v", err)
	}
	if paths.HomeDir == "" {
		t.Error("HomeDir should not be empty")
	}
}

func TestPaths(t *testing.T) {
	home := t.TempDir()
	paths := &Paths{HomeDir: home}
	base := filepath.Join(home, DefaultBaseDir)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"BaseDir", paths.BaseDir(), base},
		{"ConfigFile", paths.ConfigFile(), filepath.Join(base, "config.yaml")},
		{"DataDir", paths.DataDir("prod"), filepath.Join(base, "data", "prod")},
		{"ClipDir", paths.ClipDir("prod"), filepath.Join(base, "clips", "prod")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("%s was not created: %v", dir, err)
	}
}
