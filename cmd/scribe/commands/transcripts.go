package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/scribe/pkg/transcript"
)

var transcriptsParticipant string

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "Read stored transcripts",
}

var transcriptsListCmd = &cobra.Command{
	Use:   "list <session>",
	Short: "List the transcript of a session",
	Long: `List the stored utterances of a session in time order.

The store is opened directly and cannot be shared with a running
'scribe serve' of the same context; query the server's
/v1/sessions/{session}/transcripts route instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		store, err := openStore(c, slog.Default())
		if err != nil {
			return err
		}
		defer store.Close()

		sink := transcript.NewKVSink(store)
		all, err := transcript.Collect(sink.Records(cmd.Context(), args[0]))
		if err != nil {
			return err
		}
		recs := all[:0]
		for _, r := range all {
			if transcriptsParticipant == "" || r.ParticipantID == transcriptsParticipant {
				recs = append(recs, r)
			}
		}
		return printTranscript(args[0], recs)
	},
}

var transcriptsSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of a transcript record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := transcript.Schema()
		if err != nil {
			return err
		}
		if outputFile != "" {
			return os.WriteFile(outputFile, append(data, '\n'), 0644)
		}
		_, err = fmt.Println(string(data))
		return err
	},
}

func init() {
	transcriptsListCmd.Flags().StringVar(&transcriptsParticipant, "participant", "", "only this participant")
	transcriptsCmd.AddCommand(transcriptsListCmd)
	transcriptsCmd.AddCommand(transcriptsSchemaCmd)
}
