// Package ingest accepts participant audio over the network and feeds it to
// a pipeline.Supervisor.
//
// Two transports are served: a websocket carrying raw little-endian 16-bit
// PCM in binary messages, and (through an OfferHandler such as rtc.Handler)
// WebRTC Opus tracks negotiated with a JSON SDP offer.
//
// Routes:
//
//	GET  /v1/sessions/{session}/participants/{participant}/stream?name=&rate=
//	POST /v1/sessions/{session}/participants/{participant}/offer
//	GET  /v1/sessions/{session}/transcripts
//	GET  /healthz
package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/pipeline"
	"github.com/haivivi/scribe/pkg/transcript"
)

// FrameSize is the frame duration delivered to pipelines.
const FrameSize = 20 * time.Millisecond

// Router is the part of pipeline.Supervisor used by ingest.
type Router interface {
	Join(p pipeline.Participant, src pipeline.Source) (*pipeline.Pipeline, error)
	Push(participantID string, fr pcm.Frame) bool
	EndStream(participantID string) bool
	Leave(participantID string) bool
	Pipeline(participantID string) (*pipeline.Pipeline, bool)
}

var _ Router = (*pipeline.Supervisor)(nil)

// OfferHandler negotiates a WebRTC session for a participant and returns
// the SDP answer.
type OfferHandler interface {
	Offer(ctx context.Context, p pipeline.Participant, offerSDP string) (string, error)
}

// Lister reads stored transcripts. *transcript.KVSink implements it.
type Lister interface {
	Records(ctx context.Context, sessionID string) *transcript.RecordIterator
}

// Options configures a Server.
type Options struct {
	// Format of the frames pushed to the router. Defaults to 16kHz.
	Format pcm.Format

	// Offers enables the WebRTC offer route.
	Offers OfferHandler

	// Transcripts enables the transcript listing route.
	Transcripts Lister

	Logger *slog.Logger
}

// Server is the HTTP front of the ingest transports.
type Server struct {
	router   Router
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// NewServer creates a Server routing audio to router.
func NewServer(router Router, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.Format.Valid() {
		opts.Format = pcm.L16Mono16K
	}
	s := &Server{
		router: router,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize: 8192,
			CheckOrigin:    func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok\n")
	})
	s.mux.HandleFunc("GET /v1/sessions/{session}/participants/{participant}/stream", s.handleStream)
	if opts.Offers != nil {
		s.mux.HandleFunc("POST /v1/sessions/{session}/participants/{participant}/offer", s.handleOffer)
	}
	if opts.Transcripts != nil {
		s.mux.HandleFunc("GET /v1/sessions/{session}/transcripts", s.handleTranscripts)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func participantFrom(r *http.Request) pipeline.Participant {
	return pipeline.Participant{
		SessionID: r.PathValue("session"),
		ID:        r.PathValue("participant"),
		Name:      r.URL.Query().Get("name"),
	}
}

// OfferRequest is the body of the offer route.
type OfferRequest struct {
	SDP string `json:"sdp"`
}

// AnswerResponse is the reply of the offer route.
type AnswerResponse struct {
	SDP string `json:"sdp"`
}

func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	var req OfferRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil || req.SDP == "" {
		http.Error(w, "invalid offer", http.StatusBadRequest)
		return
	}
	p := participantFrom(r)
	answer, err := s.opts.Offers.Offer(r.Context(), p, req.SDP)
	if err != nil {
		s.logger.Warn("webrtc offer failed", "session", p.SessionID, "participant", p.ID, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, AnswerResponse{SDP: answer})
}

func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	recs, err := transcript.Collect(s.opts.Transcripts.Records(r.Context(), r.PathValue("session")))
	if err != nil {
		s.logger.Error("list transcripts", "error", err)
		http.Error(w, "list transcripts failed", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []*transcript.Record{}
	}
	writeJSON(w, recs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("ingest: write response", "error", err)
	}
}
