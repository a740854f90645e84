package ingest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/scribe/pkg/audio/pcm"
	"github.com/haivivi/scribe/pkg/audio/resampler"
	"github.com/haivivi/scribe/pkg/pipeline"
)

const (
	streamReadLimit = 1 << 20
	streamIdle      = 60 * time.Second
)

// Control is a text message on the stream websocket.
type Control struct {
	// Type is "end" to finish the stream gracefully (same as closing the
	// socket) or "leave" to abandon pending work.
	Type string `json:"type"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	p := participantFrom(r)
	format := s.opts.Format
	inFormat := format
	if v := r.URL.Query().Get("rate"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid rate", http.StatusBadRequest)
			return
		}
		if inFormat, err = pcm.ForRate(rate); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	var conv *resampler.Converter
	if inFormat != format {
		var err error
		if conv, err = resampler.New(inFormat, format); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	pl, err := s.router.Join(p, nil)
	if err != nil {
		s.logger.Warn("join failed", "session", p.SessionID, "participant", p.ID, "error", err)
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return
	}
	p = pl.Participant()
	log := s.logger.With("session", p.SessionID, "participant", p.ID, "transport", "websocket")
	log.Info("stream opened", "rate", inFormat.SampleRate())

	st := &stream{
		router: s.router,
		pl:     pl,
		framer: NewFramer(format, FrameSize),
		conv:   conv,
		log:    log,
	}
	leave := st.read(conn)
	st.finish(leave)
}

type stream struct {
	router  Router
	pl      *pipeline.Pipeline
	framer  *Framer
	conv    *resampler.Converter
	log     *slog.Logger
	dropped int
}

// read consumes the socket until it closes or a control message ends the
// stream. It reports whether the participant asked to leave.
func (st *stream) read(conn *websocket.Conn) (leave bool) {
	conn.SetReadLimit(streamReadLimit)
	for {
		conn.SetReadDeadline(time.Now().Add(streamIdle))
		mt, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if !errors.As(err, &ce) {
				st.log.Debug("stream read ended", "error", err)
			}
			return false
		}
		switch mt {
		case websocket.BinaryMessage:
			if err := st.write(pcm.DecodeL16(data)); err != nil {
				st.log.Error("resample failed", "error", err)
				return false
			}
		case websocket.TextMessage:
			var c Control
			if err := json.Unmarshal(data, &c); err != nil {
				st.log.Warn("invalid control message", "error", err)
				continue
			}
			switch c.Type {
			case "end":
				return false
			case "leave":
				return true
			default:
				st.log.Warn("unknown control message", "type", c.Type)
			}
		}
		if !st.live() {
			st.log.Info("pipeline replaced or closed, dropping stream")
			return false
		}
	}
}

func (st *stream) write(samples []int16) error {
	if st.conv != nil {
		var err error
		if samples, err = st.conv.Convert(samples); err != nil {
			return err
		}
	}
	st.push(st.framer.Write(samples))
	return nil
}

func (st *stream) push(frames []pcm.Frame) {
	id := st.pl.Participant().ID
	for _, fr := range frames {
		if !st.router.Push(id, fr) {
			st.dropped++
		}
	}
}

// live reports whether the router still runs the pipeline this stream
// joined. A rejoin from another connection replaces it.
func (st *stream) live() bool {
	cur, ok := st.router.Pipeline(st.pl.Participant().ID)
	return ok && cur == st.pl
}

func (st *stream) finish(leave bool) {
	id := st.pl.Participant().ID
	if !st.live() {
		return
	}
	if leave {
		st.router.Leave(id)
		st.log.Info("stream left", "dropped_frames", st.dropped)
		return
	}
	st.push(st.framer.Flush())
	st.router.EndStream(id)
	st.log.Info("stream closed", "dropped_frames", st.dropped, "duration", st.framer.Offset())
}
