package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSettings loads a YAML or JSON settings file into v. Fields absent
// from the file keep the values v already holds, so callers pass defaults
// in. A path of "-" reads stdin.
func LoadSettings(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	return ParseSettings(data, path, v)
}

// ParseSettings parses settings data based on file extension or content
func ParseSettings(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		// JSON is valid YAML, so YAML alone covers both.
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse settings (tried YAML and JSON): %w", err)
		}
	}
	return nil
}
