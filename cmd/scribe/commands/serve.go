package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/spf13/cobra"

	"github.com/haivivi/scribe/pkg/cli"
	"github.com/haivivi/scribe/pkg/ingest"
	"github.com/haivivi/scribe/pkg/ingest/rtc"
	"github.com/haivivi/scribe/pkg/pipeline"
	"github.com/haivivi/scribe/pkg/transcribe"
	"github.com/haivivi/scribe/pkg/transcript"
)

var (
	serveListen string
	serveWebRTC bool
	serveSTUN   []string
	serveDrain  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingest server",
	Long: `Accept participant audio and transcribe each utterance.

Routes:
  GET  /v1/sessions/{session}/participants/{participant}/stream?name=&rate=
       websocket; binary messages are 16-bit little-endian mono PCM,
       text message {"type":"end"} finishes, {"type":"leave"} abandons
  POST /v1/sessions/{session}/participants/{participant}/offer?name=
       WebRTC SDP offer {"sdp": "..."}; answers {"sdp": "..."}
  GET  /v1/sessions/{session}/transcripts
  GET  /healthz

On SIGINT or SIGTERM open streams are ended and queued utterances are
given --drain to finish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		s, err := loadSettings(c)
		if err != nil {
			return err
		}
		addr := serveListen
		if addr == "" {
			addr = c.Listen
		}
		if addr == "" {
			addr = ":8080"
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, addr, c, s)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from context, else :8080)")
	serveCmd.Flags().BoolVar(&serveWebRTC, "webrtc", true, "accept WebRTC offers")
	serveCmd.Flags().StringSliceVar(&serveSTUN, "stun", nil, "STUN server URLs for WebRTC")
	serveCmd.Flags().DurationVar(&serveDrain, "drain", 30*time.Second, "time allowed for queued utterances on shutdown")
}

func serve(ctx context.Context, addr string, c *cli.Context, s *Settings) error {
	logger := slog.Default().With("context", c.Name)

	store, err := openStore(c, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	archive, err := openArchive(c)
	if err != nil {
		return err
	}
	provider, err := newProvider(ctx, c, s)
	if err != nil {
		return err
	}
	sink := transcript.NewKVSink(store, transcript.WithLogger(logger))
	dispatcher := transcribe.NewDispatcher(provider, s.Transcribe, transcribe.WithLogger(logger))

	sup, err := pipeline.NewSupervisor(s.Pipeline, pipeline.Deps{
		Dispatcher: dispatcher,
		Sink:       sink,
		Archive:    archive,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	opts := ingest.Options{Transcripts: sink, Logger: logger}
	var offers *rtc.Handler
	if serveWebRTC {
		var ice []webrtc.ICEServer
		if len(serveSTUN) > 0 {
			ice = append(ice, webrtc.ICEServer{URLs: serveSTUN})
		}
		offers, err = rtc.New(sup, rtc.Options{ICEServers: ice, Logger: logger})
		if err != nil {
			sup.Close()
			return err
		}
		opts.Offers = offers
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           ingest.NewServer(sup, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", addr, "provider", dispatcher.Provider(), "webrtc", serveWebRTC)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		sup.Close()
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "participants", len(sup.Participants()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveDrain)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("http shutdown", "error", err)
	}
	if offers != nil {
		offers.Close()
	}
	for _, p := range sup.Participants() {
		sup.EndStream(p.ID)
	}
	if err := sup.Wait(shutdownCtx); err != nil {
		logger.Warn("drain timed out, abandoning queued utterances", "error", err)
	}
	sup.Close()
	sup.Wait(context.Background())
	return nil
}
