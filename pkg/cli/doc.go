// Package cli provides the shared pieces of the scribe command line:
// configuration contexts, output formatting, settings files and terminal
// rendering.
//
// Configuration is stored in ~/.scribe/config.yaml and holds named
// contexts, similar to kubectl. Each context selects a transcription
// provider, its credentials and where transcripts and clips are kept.
// Secrets may be written as "env:NAME" to read them from the environment.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("")
//	ctx, err := cfg.ResolveContext(name)
//	key, err := cli.Secret(ctx.APIKey)
//
//	cli.Output(records, cli.OutputOptions{Format: cli.FormatJSON})
package cli
