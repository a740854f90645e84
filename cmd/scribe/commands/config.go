package commands

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/scribe/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

A context names a transcription provider, its credentials and where
transcripts and clips are kept. Secrets may be given as env:NAME to be read
from the environment when used.

Configuration is stored in ~/.scribe/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add or replace a context",
	Long: `Add a context with the specified name. The first context added becomes
the current one.

Examples:
  scribe config add-context dev --provider openai --api-key env:OPENAI_API_KEY --language ko
  scribe config add-context lab --provider httpapi --base-url http://asr:9000/asr \
    --archive s3://clips/scribe --s3-endpoint http://minio:9000 --s3-path-style`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		str := func(name string) string {
			v, _ := flags.GetString(name)
			return v
		}
		num := func(name string) int {
			v, _ := flags.GetInt(name)
			return v
		}

		ctx := &cli.Context{
			Provider:   str("provider"),
			APIKey:     str("api-key"),
			BaseURL:    str("base-url"),
			Model:      str("model"),
			Language:   str("language"),
			Timeout:    num("timeout"),
			MaxRetries: num("max-retries"),
			DataDir:    str("data-dir"),
			Listen:     str("listen"),
		}
		if p := str("prompt"); p != "" {
			ctx.SetExtra("prompt", p)
		}
		if a := str("archive"); a != "" {
			archive, err := parseArchive(a)
			if err != nil {
				return err
			}
			if archive.Kind == "s3" {
				archive.Region = str("s3-region")
				archive.Endpoint = str("s3-endpoint")
				archive.AccessKey = str("s3-access-key")
				archive.SecretKey = str("s3-secret-key")
				archive.PathStyle, _ = flags.GetBool("s3-path-style")
			}
			ctx.Archive = archive
		}

		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddContext(args[0], ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q added", args[0])
		return nil
	},
}

// parseArchive accepts a local directory or s3://bucket/prefix.
func parseArchive(s string) (*cli.Archive, error) {
	if !strings.HasPrefix(s, "s3://") {
		return &cli.Archive{Kind: "local", Dir: s}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid archive %q: %w", s, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid archive %q: missing bucket", s)
	}
	return &cli.Archive{Kind: "s3", Bucket: u.Host, Prefix: strings.Trim(u.Path, "/")}, nil
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tPROVIDER\tAPI KEY\tARCHIVE")
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			archive := "-"
			if a := ctx.Archive; a != nil {
				archive = a.Kind
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", current, name, ctx.Provider, cli.MaskAPIKey(ctx.APIKey), archive)
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view [name]",
	Short: "Show a context with secrets masked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := contextName
		if len(args) == 1 {
			name = args[0]
		}
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		ctx, err := cfg.ResolveContext(name)
		if err != nil {
			return err
		}
		masked := *ctx
		masked.APIKey = cli.MaskAPIKey(ctx.APIKey)
		if ctx.Archive != nil {
			a := *ctx.Archive
			a.AccessKey = cli.MaskAPIKey(a.AccessKey)
			a.SecretKey = cli.MaskAPIKey(a.SecretKey)
			masked.Archive = &a
		}
		f, err := outputFormat()
		if err != nil {
			return err
		}
		if f == cli.FormatText {
			f = cli.FormatYAML
		}
		return cli.Output(&masked, cli.OutputOptions{Format: f, File: outputFile})
	},
}

func init() {
	f := configAddContextCmd.Flags()
	f.String("provider", "openai", "transcription provider: openai, gemini or httpapi")
	f.String("api-key", "", "provider API key, or env:NAME")
	f.String("base-url", "", "provider base URL (httpapi: upload URL)")
	f.String("model", "", "provider model")
	f.String("language", "", "expected language code, e.g. ko")
	f.String("prompt", "", "context prompt passed to the provider")
	f.Int("timeout", 0, "per-request timeout in seconds")
	f.Int("max-retries", 0, "attempts per utterance (at most 3)")
	f.String("data-dir", "", "transcript store directory")
	f.String("listen", "", "default listen address for serve")
	f.String("archive", "", "clip archive: a directory or s3://bucket/prefix")
	f.String("s3-region", "", "S3 region")
	f.String("s3-endpoint", "", "S3-compatible endpoint URL")
	f.String("s3-access-key", "", "S3 access key, or env:NAME")
	f.String("s3-secret-key", "", "S3 secret key, or env:NAME")
	f.Bool("s3-path-style", false, "use path-style S3 addressing")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
