package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/scribe/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	contextName  string
	settingsFile string
	outputFile   string
	formatOutput string
	wrapWidth    int
	verbose      bool

	// Global configuration
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Per-participant speech transcription",
	Long: `scribe - record what every participant says, one utterance at a time.

Each participant's audio runs through voice activity detection. Finished
utterances are sent to a transcription provider (OpenAI Whisper, Gemini or
a self-hosted HTTP endpoint) and stored as transcript records.

Configuration is stored in ~/.scribe/config.yaml and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Set up a context using an API key from the environment
  scribe config add-context dev --provider openai --api-key env:OPENAI_API_KEY --language ko

  # Serve websocket and WebRTC ingest
  scribe serve --listen :8080

  # Transcribe a recording with tuned VAD settings
  scribe transcribe meeting.wav --session standup -f settings.yaml

  # Read the transcript back
  scribe transcripts list standup --format json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.scribe/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&settingsFile, "file", "f", "", "pipeline settings file (YAML or JSON, - for stdin)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "text", "output format: text, yaml, json or jsonl")
	rootCmd.PersistentFlags().IntVar(&wrapWidth, "width", 0, "wrap text output at this many columns (0: no wrapping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(transcriptsCmd)
	rootCmd.AddCommand(versionCmd)
}

// getConfig loads the configuration on first use, so commands that do not
// need it keep working without a home directory.
func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		cfg, err := cli.LoadConfig(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		if contextName == "" {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'scribe config use-context'")
		}
		return nil, err
	}
	return ctx, nil
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(formatOutput)
}

// outputResult writes result in the selected machine format.
func outputResult(result any) error {
	f, err := outputFormat()
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{Format: f, File: outputFile})
}
