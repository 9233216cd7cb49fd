package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type pollService struct {
	repo ports.PollRepository
	now  func() time.Time
}

func NewPollService(repo ports.PollRepository) ports.PollService {
	return &pollService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrQuestionRequired
	}

	pollID := uuid.New()
	// Postgres keeps microseconds; truncating keeps the returned record
	// identical to what a later read yields.
	now := s.now().UTC().Truncate(time.Microsecond)

	poll := &domain.Poll{
		ID:           pollID,
		Question:     question,
		CreatorID:    strings.TrimSpace(input.CreatorID),
		VotedIPs:     []string{},
		VotedUserIDs: []string{},
		CreatedAt:    now,
	}

	for _, optText := range input.Options {
		optText = strings.TrimSpace(optText)
		if optText == "" {
			continue
		}
		poll.Options = append(poll.Options, domain.PollOption{
			ID:     uuid.New(),
			PollID: pollID,
			Text:   optText,
		})
	}

	if len(poll.Options) < 2 {
		return nil, domain.ErrNotEnoughOptions
	}

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrPollNotFound
	}

	return s.repo.GetByID(ctx, pollID)
}

func (s *pollService) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Poll, error) {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return []*domain.Poll{}, nil
	}
	return s.repo.ListByCreator(ctx, creatorID)
}

func (s *pollService) ListVotedBy(ctx context.Context, userID string) ([]*domain.Poll, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []*domain.Poll{}, nil
	}
	return s.repo.ListVotedBy(ctx, userID)
}
