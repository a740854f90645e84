package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/audio/resampler"
	"github.com/haivivi/scribe/pkg/audio/wav"
	"github.com/haivivi/scribe/pkg/cli"
	"github.com/haivivi/scribe/pkg/pipeline"
	"github.com/haivivi/scribe/pkg/transcribe"
	"github.com/haivivi/scribe/pkg/transcript"
)

var (
	transcribeSession     string
	transcribeParticipant string
	transcribeName        string
	transcribeStart       string
	transcribeNoStore     bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file.wav>",
	Short: "Transcribe a WAV recording",
	Long: `Run a recording of one participant through voice activity detection and
transcription, exactly as a live stream would be, and print the utterances.

The file must be 16-bit PCM at 8, 16, 24 or 48 kHz, mono or stereo.
Records are stored in the context's transcript store unless --no-store is
given.

Examples:
  scribe transcribe alice.wav --session standup --participant alice --name Alice
  scribe transcribe call.wav -f settings.yaml --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		s, err := loadSettings(c)
		if err != nil {
			return err
		}
		start := time.Now()
		if transcribeStart != "" {
			if start, err = time.Parse(time.RFC3339, transcribeStart); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
		}
		session := transcribeSession
		if session == "" {
			session = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		p := pipeline.Participant{SessionID: session, ID: transcribeParticipant, Name: transcribeName}
		recs, stats, err := transcribeFile(cmd.Context(), args[0], p, start, c, s)
		if err != nil {
			return err
		}
		if stats.Failed > 0 || stats.Dropped > 0 {
			cli.PrintWarning("%d utterances failed, %d dropped", stats.Failed, stats.Dropped)
		}
		return printTranscript(session, recs)
	},
}

func init() {
	transcribeCmd.Flags().StringVar(&transcribeSession, "session", "", "session id (default: file name)")
	transcribeCmd.Flags().StringVar(&transcribeParticipant, "participant", "", "participant id")
	transcribeCmd.Flags().StringVar(&transcribeName, "name", "", "participant display name")
	transcribeCmd.Flags().StringVar(&transcribeStart, "start", "", "wall-clock time of the first sample, RFC 3339 (default: now)")
	transcribeCmd.Flags().BoolVar(&transcribeNoStore, "no-store", false, "print only, do not store records")
}

// collectSink keeps every persisted record and forwards to next, if any.
type collectSink struct {
	next transcript.Sink

	mu   sync.Mutex
	recs []*transcript.Record
}

func (s *collectSink) Persist(ctx context.Context, r *transcript.Record) error {
	if s.next != nil {
		if err := s.next.Persist(ctx, r); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.recs = append(s.recs, r)
	s.mu.Unlock()
	return nil
}

// fileSource delivers a whole recording and then ends the stream.
type fileSource chan pcm.Frame

func (s fileSource) Frames() <-chan pcm.Frame { return s }

func readWAV(path string, to pcm.Format) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	format, samples, err := wav.Decode(f)
	if err != nil {
		return nil, err
	}
	if format == to {
		return samples, nil
	}
	return resampler.Clip(samples, format, to)
}

func transcribeFile(ctx context.Context, path string, p pipeline.Participant, start time.Time, c *cli.Context, s *Settings) ([]*transcript.Record, pipeline.Stats, error) {
	logger := slog.Default().With("context", c.Name)
	cfg := s.Pipeline
	samples, err := readWAV(path, cfg.Format)
	if err != nil {
		return nil, pipeline.Stats{}, fmt.Errorf("read %s: %w", path, err)
	}
	frames := cfg.Format.Frames(samples, 20*time.Millisecond)
	// A file arrives far faster than real time; never drop utterances.
	cfg.QueueLimit = max(cfg.QueueLimit, len(frames))

	provider, err := newProvider(ctx, c, s)
	if err != nil {
		return nil, pipeline.Stats{}, err
	}
	sink := &collectSink{}
	if !transcribeNoStore {
		store, err := openStore(c, logger)
		if err != nil {
			return nil, pipeline.Stats{}, err
		}
		defer store.Close()
		sink.next = transcript.NewKVSink(store, transcript.WithLogger(logger))
	}
	archive, err := openArchive(c)
	if err != nil {
		return nil, pipeline.Stats{}, err
	}

	src := make(fileSource, len(frames))
	for _, fr := range frames {
		src <- fr
	}
	close(src)

	dispatcher := transcribe.NewDispatcher(provider, s.Transcribe, transcribe.WithLogger(logger))
	pl, err := pipeline.New(ctx, p, src, cfg, pipeline.Deps{
		Dispatcher: dispatcher,
		Sink:       sink,
		Archive:    archive,
		Logger:     logger,
		Now:        func() time.Time { return start },
	})
	if err != nil {
		return nil, pipeline.Stats{}, err
	}
	select {
	case <-pl.Done():
	case <-ctx.Done():
		pl.Close()
		<-pl.Done()
		return nil, pl.Stats(), ctx.Err()
	}
	logger.Debug("file transcribed", "provider", dispatcher.Provider(), "duration", cfg.Format.Duration(len(samples)), "stats", pl.Stats())
	return sink.recs, pl.Stats(), nil
}
