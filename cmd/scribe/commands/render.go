package commands

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/haivivi/scribe/pkg/cli"
	"github.com/haivivi/scribe/pkg/transcript"
)

// printTranscript writes records in the selected format. Text output is a
// chronological, speaker-labelled transcript.
func printTranscript(title string, recs []*transcript.Record) error {
	f, err := outputFormat()
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []*transcript.Record{}
	}
	slices.SortStableFunc(recs, func(a, b *transcript.Record) int {
		return cmp.Or(a.StartTime.Compare(b.StartTime), cmp.Compare(a.ParticipantID, b.ParticipantID))
	})
	if f != cli.FormatText {
		return outputResult(recs)
	}

	var origin time.Time
	if len(recs) > 0 {
		origin = recs[0].StartTime
	}
	lines := make([]cli.Line, len(recs))
	for i, r := range recs {
		speaker := r.ParticipantName
		if speaker == "" {
			speaker = r.ParticipantID
		}
		lines[i] = cli.Line{
			At:       r.StartTime.Sub(origin),
			Duration: r.Duration(),
			Speaker:  speaker,
			Text:     r.Text,
		}
	}
	out := cli.NewStyles(cli.DefaultTheme).Transcript(title, lines, wrapWidth)
	if outputFile != "" {
		return os.WriteFile(outputFile, []byte(out), 0644)
	}
	_, err = fmt.Print(out)
	return err
}
