package services

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

var errStoreDown = errors.New("store down")

type memoryRepo struct {
	mu    sync.Mutex
	polls map[uuid.UUID]*domain.Poll
	fail  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{polls: make(map[uuid.UUID]*domain.Poll)}
}

func clonePoll(p *domain.Poll) *domain.Poll {
	c := *p
	c.Options = slices.Clone(p.Options)
	c.VotedIPs = slices.Clone(p.VotedIPs)
	c.VotedUserIDs = slices.Clone(p.VotedUserIDs)
	return &c
}

func (r *memoryRepo) Save(_ context.Context, poll *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	poll, ok := r.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return clonePoll(poll), nil
}

func (r *memoryRepo) list(match func(*domain.Poll) bool) []*domain.Poll {
	r.mu.Lock()
	defer r.mu.Unlock()
	polls := []*domain.Poll{}
	for _, p := range r.polls {
		if match(p) {
			polls = append(polls, clonePoll(p))
		}
	}
	sort.Slice(polls, func(i, j int) bool { return polls[i].CreatedAt.After(polls[j].CreatedAt) })
	return polls
}

func (r *memoryRepo) ListByCreator(_ context.Context, creatorID string) ([]*domain.Poll, error) {
	return r.list(func(p *domain.Poll) bool { return p.CreatorID == creatorID }), nil
}

func (r *memoryRepo) ListVotedBy(_ context.Context, userID string) ([]*domain.Poll, error) {
	return r.list(func(p *domain.Poll) bool { return slices.Contains(p.VotedUserIDs, userID) }), nil
}

func (r *memoryRepo) ApplyVote(_ context.Context, pollID uuid.UUID, ballot domain.Ballot) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	stored, ok := r.polls[pollID]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	next := clonePoll(stored)
	if err := next.Apply(ballot); err != nil {
		return nil, err
	}
	r.polls[pollID] = next
	return clonePoll(next), nil
}

type recordingBroadcaster struct {
	mu        sync.Mutex
	published []*domain.Poll
}

func (b *recordingBroadcaster) Publish(poll *domain.Poll) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, poll)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}
