package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{db: db}
}

// ApplyVote relies on BEGIN IMMEDIATE: the write lock is taken before the
// poll is read, so the guard always sees every committed vote.
func (r *voteRepository) ApplyVote(ctx context.Context, pollID uuid.UUID, ballot domain.Ballot) (*domain.Poll, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	poll, err := loadPoll(ctx, tx, pollID)
	if err != nil {
		return nil, err
	}

	if err := poll.Apply(ballot); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE poll_options SET votes = votes + 1 WHERE id = ? AND poll_id = ?`, ballot.OptionID.String(), pollID.String()); err != nil {
		return nil, fmt.Errorf("failed to increment option votes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO poll_voted_ips (poll_id, ip) VALUES (?, ?)`, pollID.String(), ballot.Voter.Address); err != nil {
		return nil, fmt.Errorf("failed to record voter address: %w", err)
	}
	if ballot.Voter.UserID != "" {
		if _, err := tx.ExecContext(ctx, `INSERT INTO poll_voted_users (poll_id, user_id) VALUES (?, ?)`, pollID.String(), ballot.Voter.UserID); err != nil {
			return nil, fmt.Errorf("failed to record voter id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}
	return poll, nil
}
