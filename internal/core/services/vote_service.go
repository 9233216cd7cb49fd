package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type voteService struct {
	voteRepo    ports.VoteRepository
	broadcaster ports.Broadcaster
	logger      *slog.Logger
}

func NewVoteService(voteRepo ports.VoteRepository, broadcaster ports.Broadcaster, logger *slog.Logger) ports.VoteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &voteService{
		voteRepo:    voteRepo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (s *voteService) Vote(ctx context.Context, input ports.VoteInput) (*domain.Poll, error) {
	pollID, err := uuid.Parse(input.PollID)
	if err != nil {
		return nil, domain.ErrPollNotFound
	}

	// An unparsable option id still goes through the guard and then fails
	// the option lookup, so duplicates are reported first.
	optionID, err := uuid.Parse(input.OptionID)
	if err != nil {
		optionID = uuid.Nil
	}

	ballot := domain.Ballot{
		OptionID: optionID,
		Voter: domain.Voter{
			Address: domain.NormalizeAddress(input.VoterAddress),
			UserID:  strings.TrimSpace(input.UserID),
		},
	}

	poll, err := s.voteRepo.ApplyVote(ctx, pollID, ballot)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			s.logger.WarnContext(ctx, "vote rejected", "poll_id", pollID, "reason", err.Error())
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "vote accepted", "poll_id", pollID, "option_id", optionID, "total_votes", poll.TotalVotes())

	if s.broadcaster != nil {
		s.broadcaster.Publish(poll)
	}

	return poll, nil
}
