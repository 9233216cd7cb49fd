package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"golang.org/x/net/websocket"
)

var errSessionClosed = errors.New("subscription closed by server")

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type wsError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Watcher keeps one poll view in sync: it fetches a snapshot, subscribes to
// the poll's room and replaces its state wholesale on every update,
// reconnecting with exponential backoff whenever the transport fails.
type Watcher struct {
	api        *API
	pollID     string
	onState    func(*domain.Poll)
	newBackOff func() backoff.BackOff
	logger     *slog.Logger

	mu      sync.Mutex
	current *domain.Poll
}

type WatcherOption func(*Watcher)

func WithBackOff(newBackOff func() backoff.BackOff) WatcherOption {
	return func(w *Watcher) {
		w.newBackOff = newBackOff
	}
}

func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// NewWatcher calls onState, if set, from the Run goroutine each time a
// newer state is applied.
func NewWatcher(api *API, pollID string, onState func(*domain.Poll), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		api:        api,
		pollID:     pollID,
		onState:    onState,
		newBackOff: defaultBackOff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) Current() *domain.Poll {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run blocks until ctx is done or the poll turns out not to exist.
func (w *Watcher) Run(ctx context.Context) error {
	b := backoff.WithContext(w.newBackOff(), ctx)

	err := backoff.Retry(func() error {
		joined, err := w.session(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, domain.ErrPollNotFound) {
			return backoff.Permanent(err)
		}
		if err == nil {
			err = errSessionClosed
		}
		if joined {
			b.Reset()
		}
		w.logger.Warn("poll subscription lost, reconnecting", "poll_id", w.pollID, "error", err)
		return err
	}, b)

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// session runs one connection. joined reports whether the room accepted
// the subscription before the connection ended.
func (w *Watcher) session(ctx context.Context) (joined bool, err error) {
	snapshot, err := w.api.GetPoll(ctx, w.pollID)
	if err != nil {
		return false, err
	}
	w.apply(snapshot)

	config, err := websocket.NewConfig(w.api.WebsocketURL(), w.api.BaseURL())
	if err != nil {
		return false, fmt.Errorf("websocket config: %w", err)
	}
	conn, err := config.DialContext(ctx)
	if err != nil {
		return false, fmt.Errorf("dial websocket: %w", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = conn.Close()
	}()

	requestID := uuid.NewString()
	join := wsFrame{
		Type:      "poll.join",
		RequestID: requestID,
		Payload:   json.RawMessage(fmt.Sprintf(`{"poll_id":%q}`, w.pollID)),
	}
	if err := websocket.JSON.Send(conn, join); err != nil {
		return false, fmt.Errorf("send join: %w", err)
	}

	for {
		var frame wsFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			return joined, fmt.Errorf("receive frame: %w", err)
		}

		switch frame.Type {
		case "poll.joined", "poll.updated":
			var poll domain.Poll
			if err := json.Unmarshal(frame.Payload, &poll); err != nil {
				return joined, fmt.Errorf("decode poll state: %w", err)
			}
			if frame.Type == "poll.joined" {
				joined = true
			}
			w.apply(&poll)
		case "error":
			var payload wsError
			_ = json.Unmarshal(frame.Payload, &payload)
			if payload.Code == "NOT_FOUND" {
				return joined, domain.ErrPollNotFound
			}
			if frame.RequestID == requestID {
				return joined, fmt.Errorf("join rejected: %s", payload.Message)
			}
			w.logger.Warn("server reported an error", "poll_id", w.pollID, "code", payload.Code, "message", payload.Message)
		}
	}
}

// apply ignores states older than the current one; the snapshot fetched on
// reconnect may race with a broadcast already delivered.
func (w *Watcher) apply(poll *domain.Poll) {
	w.mu.Lock()
	if w.current != nil && w.current.ID == poll.ID && poll.TotalVotes() < w.current.TotalVotes() {
		w.mu.Unlock()
		return
	}
	w.current = poll
	w.mu.Unlock()

	if w.onState != nil {
		w.onState(poll)
	}
}
