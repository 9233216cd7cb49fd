package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"golang.org/x/net/websocket"
)

const (
	maxFrameBytes          = 16 * 1024
	maxDecodeErrorsPerConn = 3
)

// Handler serves the room subscription protocol over a websocket.
type Handler struct {
	hub            *Hub
	polls          ports.PollService
	allowedOrigins []string
	logger         *slog.Logger
}

func NewHandler(hub *Hub, polls ports.PollService, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:            hub,
		polls:          polls,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	server := websocket.Server{
		Handshake: h.handshake,
		Handler:   h.serve,
	}
	server.ServeHTTP(w, r)
}

// handshake accepts clients without an Origin header (non-browser peers)
// and browsers whose origin is in the allow list.
func (h *Handler) handshake(config *websocket.Config, r *http.Request) error {
	raw := r.Header.Get("Origin")
	if raw == "" {
		return nil
	}

	origin, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", raw, err)
	}
	config.Origin = origin

	if len(h.allowedOrigins) == 0 || slices.Contains(h.allowedOrigins, "*") {
		return nil
	}
	for _, allowed := range h.allowedOrigins {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin.Scheme+"://"+origin.Host) {
			return nil
		}
	}
	return fmt.Errorf("origin %q not allowed", raw)
}

func (h *Handler) serve(conn *websocket.Conn) {
	conn.MaxPayloadBytes = maxFrameBytes
	ctx := conn.Request().Context()

	sub := h.hub.Subscribe()
	h.logger.Debug("subscriber connected", "subscriber", sub.ID())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, sub)
	}()

	defer func() {
		h.hub.Drop(sub)
		<-writerDone
		h.logger.Debug("subscriber disconnected", "subscriber", sub.ID())
	}()

	decodeErrors := 0
	for {
		var data []byte
		if err := websocket.Message.Receive(conn, &data); err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Debug("websocket read failed", "subscriber", sub.ID(), "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			decodeErrors++
			h.hub.Send(sub, errorFrame("", CodeInvalidArgument, "invalid frame"))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		switch frame.Type {
		case FrameJoin:
			h.join(ctx, sub, frame)
		case FrameLeave:
			h.leave(sub, frame)
		default:
			h.hub.Send(sub, errorFrame(frame.RequestID, CodeInvalidArgument, "unsupported frame type"))
		}
	}
}

// writeLoop drains the queue until the hub closes it, then closes the
// connection so the read loop ends too.
func (h *Handler) writeLoop(conn *websocket.Conn, sub *Subscriber) {
	defer conn.Close()
	for frame := range sub.Frames() {
		if err := websocket.JSON.Send(conn, frame); err != nil {
			h.logger.Debug("websocket write failed", "subscriber", sub.ID(), "error", err)
			h.hub.Drop(sub)
			return
		}
	}
}

func roomID(frame Frame) (string, bool) {
	var payload RoomPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return "", false
	}
	id := strings.TrimSpace(payload.PollID)
	return id, id != ""
}

// join registers the subscriber before loading the snapshot so a vote
// committed in between is not lost.
func (h *Handler) join(ctx context.Context, sub *Subscriber, frame Frame) {
	id, ok := roomID(frame)
	if !ok {
		h.hub.Send(sub, errorFrame(frame.RequestID, CodeInvalidArgument, "poll_id is required"))
		return
	}

	pollID, err := uuid.Parse(id)
	if err != nil {
		h.hub.Send(sub, errorFrame(frame.RequestID, CodeNotFound, domain.ErrPollNotFound.Error()))
		return
	}

	if !h.hub.Join(sub, pollID) {
		return
	}

	poll, err := h.polls.GetPoll(ctx, id)
	if err != nil {
		h.hub.Leave(sub, pollID)
		if errors.Is(err, domain.ErrPollNotFound) {
			h.hub.Send(sub, errorFrame(frame.RequestID, CodeNotFound, err.Error()))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load poll for subscriber", "poll_id", pollID, "error", err)
		h.hub.Send(sub, errorFrame(frame.RequestID, CodeInternal, "failed to load poll"))
		return
	}

	h.hub.Welcome(sub, poll, frame.RequestID)
}

func (h *Handler) leave(sub *Subscriber, frame Frame) {
	id, ok := roomID(frame)
	if !ok {
		h.hub.Send(sub, errorFrame(frame.RequestID, CodeInvalidArgument, "poll_id is required"))
		return
	}
	if pollID, err := uuid.Parse(id); err == nil {
		h.hub.Leave(sub, pollID)
	}
	h.hub.Send(sub, Frame{Type: FrameLeft, RequestID: frame.RequestID, Payload: mustJSON(RoomPayload{PollID: id})})
}
