// Package rtc receives participant audio over WebRTC. Each offer creates a
// receive-only peer connection; the first Opus track is decoded, framed and
// pushed to the router for the offering participant.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/haivivi/scribe/pkg/audio/codec/opus"
	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/ingest"
	"github.com/haivivi/scribe/pkg/pipeline"
)

// ErrClosed is returned by Offer after Close.
var ErrClosed = errors.New("rtc: handler closed")

const (
	defaultMaxConceal = 100 * time.Millisecond
	defaultMaxSilence = 5 * time.Second
	gatherTimeout     = 10 * time.Second
)

// Options configures a Handler.
type Options struct {
	// ICEServers for NAT traversal. Empty is fine for local networks.
	ICEServers []webrtc.ICEServer

	// Format of the frames pushed to the router. Opus is decoded directly
	// at this rate. Defaults to 16kHz.
	Format pcm.Format

	// MaxConceal is the longest packet loss filled by Opus concealment.
	MaxConceal time.Duration

	// MaxSilence is the longest pause filled with silence. Longer gaps
	// advance the stream offset without audio.
	MaxSilence time.Duration

	Logger *slog.Logger
}

// Handler negotiates WebRTC sessions. It implements ingest.OfferHandler.
type Handler struct {
	router ingest.Router
	opts   Options
	logger *slog.Logger
	api    *webrtc.API

	mu     sync.Mutex
	peers  map[*webrtc.PeerConnection]struct{}
	closed bool
	wg     sync.WaitGroup
}

var _ ingest.OfferHandler = (*Handler)(nil)

// New creates a Handler routing decoded audio to router.
func New(router ingest.Router, opts Options) (*Handler, error) {
	if !opts.Format.Valid() {
		opts.Format = pcm.L16Mono16K
	}
	if opts.MaxConceal <= 0 {
		opts.MaxConceal = defaultMaxConceal
	}
	if opts.MaxSilence <= 0 {
		opts.MaxSilence = defaultMaxSilence
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &webrtc.MediaEngine{}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   opusClock,
			Channels:    2,
			SDPFmtpLine: "minptime=10;useinbandfec=1",
		},
		PayloadType: 111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("rtc: register opus: %w", err)
	}
	return &Handler{
		router: router,
		opts:   opts,
		logger: opts.Logger,
		api:    webrtc.NewAPI(webrtc.WithMediaEngine(m)),
		peers:  make(map[*webrtc.PeerConnection]struct{}),
	}, nil
}

// Offer answers an SDP offer from participant p. The returned answer
// carries all gathered ICE candidates.
func (h *Handler) Offer(ctx context.Context, p pipeline.Participant, offerSDP string) (string, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return "", ErrClosed
	}
	h.mu.Unlock()

	pc, err := h.api.NewPeerConnection(webrtc.Configuration{ICEServers: h.opts.ICEServers})
	if err != nil {
		return "", fmt.Errorf("rtc: create peer connection: %w", err)
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		pc.Close()
		return "", fmt.Errorf("rtc: add transceiver: %w", err)
	}

	log := h.logger.With("session", p.SessionID, "participant", p.ID, "transport", "webrtc")
	var once sync.Once
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		first := false
		once.Do(func() { first = true })
		if !first {
			log.Warn("ignoring extra audio track", "track", track.ID())
			return
		}
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.readTrack(pc, p, track, log)
		}()
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Info("webrtc connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			h.drop(pc)
		}
	})

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}); err != nil {
		pc.Close()
		return "", fmt.Errorf("rtc: set remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return "", fmt.Errorf("rtc: create answer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return "", fmt.Errorf("rtc: set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		pc.Close()
		return "", ctx.Err()
	case <-time.After(gatherTimeout):
		pc.Close()
		return "", errors.New("rtc: ICE gathering timed out")
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		pc.Close()
		return "", ErrClosed
	}
	h.peers[pc] = struct{}{}
	h.mu.Unlock()
	return pc.LocalDescription().SDP, nil
}

func (h *Handler) drop(pc *webrtc.PeerConnection) {
	h.mu.Lock()
	_, ok := h.peers[pc]
	delete(h.peers, pc)
	h.mu.Unlock()
	if ok {
		go pc.Close()
	}
}

// readTrack joins p and feeds the decoded track until it ends.
func (h *Handler) readTrack(pc *webrtc.PeerConnection, p pipeline.Participant, track *webrtc.TrackRemote, log *slog.Logger) {
	defer h.drop(pc)
	if c := track.Codec(); !strings.EqualFold(c.MimeType, webrtc.MimeTypeOpus) {
		log.Warn("unsupported codec", "codec", c.MimeType)
		return
	}
	dec, err := opus.NewDecoder(h.opts.Format.SampleRate())
	if err != nil {
		log.Error("create opus decoder", "error", err)
		return
	}
	defer dec.Close()

	pl, err := h.router.Join(p, nil)
	if err != nil {
		log.Warn("join failed", "error", err)
		return
	}
	id := pl.Participant().ID
	tr := &trackReader{
		format: h.opts.Format,
		dec:    dec,
		seq:    newSequencer(h.opts.MaxConceal, h.opts.MaxSilence),
		framer: ingest.NewFramer(h.opts.Format, ingest.FrameSize),
		push:   func(fr pcm.Frame) bool { return h.router.Push(id, fr) },
		live: func() bool {
			cur, ok := h.router.Pipeline(id)
			return ok && cur == pl
		},
		log: log,
	}
	log.Info("webrtc track started", "track", track.ID())
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			log.Info("webrtc track ended", "error", err)
			break
		}
		if !tr.packet(&pkt.Header, pkt.Payload) {
			log.Info("pipeline replaced or closed, dropping track")
			return
		}
	}
	if tr.live() {
		tr.flush()
		h.router.EndStream(id)
	}
	log.Info("webrtc stream closed", "duration", tr.framer.Offset(), "concealed", tr.concealed, "dropped_frames", tr.dropped)
}

// Close tears down every peer connection and waits for track readers.
func (h *Handler) Close() error {
	h.mu.Lock()
	h.closed = true
	peers := make([]*webrtc.PeerConnection, 0, len(h.peers))
	for pc := range h.peers {
		peers = append(peers, pc)
	}
	clear(h.peers)
	h.mu.Unlock()

	var errs []error
	for _, pc := range peers {
		if err := pc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	h.wg.Wait()
	return errors.Join(errs...)
}
