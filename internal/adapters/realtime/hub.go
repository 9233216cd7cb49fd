// Package realtime fans committed poll states out to websocket subscribers
// grouped in per-poll rooms.
package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

const DefaultQueueSize = 32

var subscriberSeq atomic.Uint64

// Subscriber is one connection's outbound queue. The hub closes the channel
// returned by Frames when the subscriber is dropped.
type Subscriber struct {
	id    uint64
	queue chan Frame
}

func (s *Subscriber) ID() uint64 {
	return s.id
}

func (s *Subscriber) Frames() <-chan Frame {
	return s.queue
}

// membership tracks what one subscriber has seen of one room. Until the
// welcome snapshot is sent the member is pending and publishes only
// replace the buffered state.
type membership struct {
	pending  bool
	buffered *domain.Poll
	lastSeq  int64
}

// Hub implements ports.Broadcaster. Updates inside a room are sequenced by
// the poll's total vote count, which grows by exactly one per accepted
// vote, so a subscriber never receives an older state after a newer one.
type Hub struct {
	mu        sync.Mutex
	rooms     map[uuid.UUID]map[*Subscriber]*membership
	members   map[*Subscriber]map[uuid.UUID]struct{}
	queueSize int
	logger    *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:     make(map[uuid.UUID]map[*Subscriber]*membership),
		members:   make(map[*Subscriber]map[uuid.UUID]struct{}),
		queueSize: DefaultQueueSize,
		logger:    logger,
	}
}

// WithQueueSize sets the outbound queue capacity of subscribers created
// afterwards.
func (h *Hub) WithQueueSize(size int) *Hub {
	if size > 0 {
		h.queueSize = size
	}
	return h
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		id:    subscriberSeq.Add(1),
		queue: make(chan Frame, h.queueSize),
	}

	h.mu.Lock()
	h.members[sub] = make(map[uuid.UUID]struct{})
	h.mu.Unlock()
	return sub
}

// Join adds sub to the room of pollID as a pending member. Call Welcome
// with a freshly loaded snapshot to start delivery, or Leave if the poll
// cannot be loaded.
func (h *Hub) Join(sub *Subscriber, pollID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms, ok := h.members[sub]
	if !ok {
		return false
	}

	room, ok := h.rooms[pollID]
	if !ok {
		room = make(map[*Subscriber]*membership)
		h.rooms[pollID] = room
	}
	if _, ok := room[sub]; !ok {
		room[sub] = &membership{pending: true, lastSeq: -1}
	}
	rooms[pollID] = struct{}{}
	return true
}

// Welcome sends the joined frame carrying the newest of snapshot and any
// state published while the member was pending. For a member that is
// already active, buffered holds the last delivered state, so a repeated
// welcome never moves it backwards.
func (h *Hub) Welcome(sub *Subscriber, snapshot *domain.Poll, requestID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.rooms[snapshot.ID][sub]
	if !ok {
		return false
	}

	state := snapshot
	if m.buffered != nil && m.buffered.TotalVotes() > state.TotalVotes() {
		state = m.buffered
	}
	m.pending = false
	m.buffered = state
	m.lastSeq = state.TotalVotes()
	return h.enqueueLocked(sub, Frame{Type: FrameJoined, RequestID: requestID, Payload: mustJSON(state)})
}

func (h *Hub) Leave(sub *Subscriber, pollID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(sub, pollID)
}

func (h *Hub) leaveLocked(sub *Subscriber, pollID uuid.UUID) {
	if room, ok := h.rooms[pollID]; ok {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, pollID)
		}
	}
	if rooms, ok := h.members[sub]; ok {
		delete(rooms, pollID)
	}
}

// Send queues a frame for sub outside of any room sequencing.
func (h *Hub) Send(sub *Subscriber, frame Frame) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.members[sub]; !ok {
		return false
	}
	return h.enqueueLocked(sub, frame)
}

// Publish never blocks: a subscriber whose queue is full is dropped.
func (h *Hub) Publish(poll *domain.Poll) {
	if poll == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[poll.ID]
	if !ok {
		return
	}

	seq := poll.TotalVotes()
	var frame Frame
	encoded := false
	for sub, m := range room {
		if m.pending {
			if m.buffered == nil || m.buffered.TotalVotes() < seq {
				m.buffered = poll
			}
			continue
		}
		if seq <= m.lastSeq {
			continue
		}
		if !encoded {
			frame = Frame{Type: FrameUpdated, Payload: mustJSON(poll)}
			encoded = true
		}
		m.lastSeq = seq
		m.buffered = poll
		h.enqueueLocked(sub, frame)
	}
}

func (h *Hub) enqueueLocked(sub *Subscriber, frame Frame) bool {
	select {
	case sub.queue <- frame:
		return true
	default:
		h.logger.Warn("dropping slow subscriber", "subscriber", sub.id)
		h.dropLocked(sub)
		return false
	}
}

// Drop removes sub from every room and closes its queue.
func (h *Hub) Drop(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

func (h *Hub) dropLocked(sub *Subscriber) {
	rooms, ok := h.members[sub]
	if !ok {
		return
	}
	for pollID := range rooms {
		h.leaveLocked(sub, pollID)
	}
	delete(h.members, sub)
	close(sub.queue)
}

// DisconnectAll drops every subscriber. Transports close their
// connections once the queue is drained.
func (h *Hub) DisconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.members {
		h.dropLocked(sub)
	}
}

func (h *Hub) RoomSize(pollID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[pollID])
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.members)
}
