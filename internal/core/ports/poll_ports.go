package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	// ListByCreator and ListVotedBy return polls newest first.
	ListByCreator(ctx context.Context, creatorID string) ([]*domain.Poll, error)
	ListVotedBy(ctx context.Context, userID string) ([]*domain.Poll, error)
}

type CreatePollInput struct {
	Question  string
	Options   []string
	CreatorID string
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*domain.Poll, error)
	ListVotedBy(ctx context.Context, userID string) ([]*domain.Poll, error)
}
