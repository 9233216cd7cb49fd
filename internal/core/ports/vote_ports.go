package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type VoteRepository interface {
	// ApplyVote runs the guard, the option lookup and the tally increment as
	// one read-modify-write on the stored poll, serialized against every
	// other vote on the same poll. It returns the committed poll.
	ApplyVote(ctx context.Context, pollID uuid.UUID, ballot domain.Ballot) (*domain.Poll, error)
}

// Broadcaster pushes the committed state of a poll to its room. Publish
// must not block on slow subscribers.
type Broadcaster interface {
	Publish(poll *domain.Poll)
}

type VoteInput struct {
	PollID   string
	OptionID string
	UserID   string
	// VoterAddress is the raw client address, possibly a proxy chain.
	VoterAddress string
}

type VoteService interface {
	Vote(ctx context.Context, input VoteInput) (*domain.Poll, error)
}
