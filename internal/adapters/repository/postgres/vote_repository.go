package postgres

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
	return &voteRepository{
		db: db,
	}
}

// ApplyVote locks the poll row for the whole read-modify-write, so two votes
// on the same poll can never both pass the guard against the same ledgers.
func (r *voteRepository) ApplyVote(ctx context.Context, pollID uuid.UUID, ballot domain.Ballot) (*domain.Poll, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	poll, err := loadPoll(ctx, tx, pollID, true)
	if err != nil {
		return nil, err
	}

	if err := poll.Apply(ballot); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE poll_options SET votes = votes + 1 WHERE id = $1 AND poll_id = $2`, ballot.OptionID, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment option votes: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO poll_voted_ips (poll_id, ip) VALUES ($1, $2)`, pollID, ballot.Voter.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to record voter address: %w", err)
	}

	if ballot.Voter.UserID != "" {
		_, err = tx.ExecContext(ctx, `INSERT INTO poll_voted_users (poll_id, user_id) VALUES ($1, $2)`, pollID, ballot.Voter.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to record voter id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}

	return poll, nil
}
