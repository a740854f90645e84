package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]any{
		"name":  "test",
		"value": 123,
	}

	err := Output(data, OutputOptions{
		Format: FormatJSON,
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if result["name"] != "test" {
		t.Errorf("name = %v, want %q", result["name"], "test")
	}
	if !strings.Contains(buf.String(), "\n  \"name\"") {
		t.Errorf("JSON output should be indented, got: %s", buf.String())
	}
}

func TestOutput_YAML(t *testing.T) {
	for _, f := range []OutputFormat{FormatYAML, FormatText, ""} {
		var buf bytes.Buffer
		if err := Output(map[string]any{"name": "test"}, OutputOptions{Format: f, Writer: &buf}); err != nil {
			t.Fatalf("Output(%q) error: %v", f, err)
		}
		if !strings.Contains(buf.String(), "name: test") {
			t.Errorf("Output(%q) should contain 'name: test', got: %s", f, buf.String())
		}
	}
}

func TestOutput_JSONL(t *testing.T) {
	type item struct {
		Text string `json:"text"`
	}
	var buf bytes.Buffer
	err := Output([]item{{"a"}, {"b"}}, OutputOptions{Format: FormatJSONL, Writer: &buf})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if got, want := buf.String(), "{\"text\":\"a\"}\n{\"text\":\"b\"}\n"; got != want {
		t.Errorf("JSONL = %q, want %q", got, want)
	}

	buf.Reset()
	if err := Output(item{"solo"}, OutputOptions{Format: FormatJSONL, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if got := buf.String(); got != "{\"text\":\"solo\"}\n" {
		t.Errorf("JSONL of a non-slice = %q", got)
	}
}

func TestOutput_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Output("x", OutputOptions{Format: "xml", Writer: &buf})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestOutput_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(map[string]int{"n": 1}, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"n": 1`) {
		t.Errorf("file content = %s", data)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"yaml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"jsonl", FormatJSONL, false},
		{"table", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
