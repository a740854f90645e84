package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/scribe/cmd/scribe/internal/build"
	"github.com/haivivi/scribe/pkg/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		if f != cli.FormatText {
			return outputResult(build.Get())
		}
		fmt.Println(build.String())
		if verbose {
			fmt.Printf("  go:     %s\n", build.Get().Go)
			if cfg, err := getConfig(); err == nil {
				fmt.Printf("  config: %s\n", cfg.Path())
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}
