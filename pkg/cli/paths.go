package cli

import (
	"os"
	"path/filepath"
)

// Paths provides access to the scribe directory structure
type Paths struct {
	// HomeDir is the user's home directory
	HomeDir string
}

// NewPaths creates a Paths rooted at the user's home directory
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the base directory (~/.scribe)
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the config file path (~/.scribe/config.yaml)
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// DataDir returns the transcript store of a context
// (~/.scribe/data/<context>)
func (p *Paths) DataDir(context string) string {
	return filepath.Join(p.BaseDir(), "data", context)
}

// ClipDir returns the default local clip archive of a context
// (~/.scribe/clips/<context>)
func (p *Paths) ClipDir(context string) string {
	return filepath.Join(p.BaseDir(), "clips", context)
}

// EnsureDir creates dir if it doesn't exist
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
