// Command scribe turns live participant audio into stored transcripts.
//
// Usage:
//
//	scribe [flags] <command> [args]
//
// Commands:
//
//	serve        - Run the websocket and WebRTC ingest server
//	transcribe   - Transcribe a WAV file through the same pipeline
//	transcripts  - List stored transcripts and print the record schema
//	config       - Manage contexts
//	version      - Show version information
//
// Configuration:
//
//	The CLI stores configuration in ~/.scribe/config.yaml.
//	Use 'scribe config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/scribe/cmd/scribe/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
