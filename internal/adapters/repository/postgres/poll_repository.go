package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (id, question, creator_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = tx.ExecContext(ctx, queryPoll, poll.ID, poll.Question, poll.CreatorID, poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	queryOption := `
		INSERT INTO poll_options (id, poll_id, position, text, votes)
		VALUES ($1, $2, $3, $4, $5)
	`
	stmt, err := tx.PrepareContext(ctx, queryOption)
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", err)
	}
	defer stmt.Close()

	for i, opt := range poll.Options {
		_, err = stmt.ExecContext(ctx, opt.ID, poll.ID, i, opt.Text, opt.Votes)
		if err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	return loadPoll(ctx, r.db, id, false)
}

func (r *pollRepository) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Poll, error) {
	query := `
		SELECT id, question, creator_id, created_at
		FROM polls
		WHERE creator_id = $1
		ORDER BY created_at DESC
	`
	return r.listPolls(ctx, query, creatorID)
}

func (r *pollRepository) ListVotedBy(ctx context.Context, userID string) ([]*domain.Poll, error) {
	query := `
		SELECT p.id, p.question, p.creator_id, p.created_at
		FROM polls p
		JOIN poll_voted_users u ON u.poll_id = p.id
		WHERE u.user_id = $1
		ORDER BY p.created_at DESC
	`
	return r.listPolls(ctx, query, userID)
}

func (r *pollRepository) listPolls(ctx context.Context, query string, args ...any) ([]*domain.Poll, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}

	polls := []*domain.Poll{}
	for rows.Next() {
		var poll domain.Poll
		if err := rows.Scan(&poll.ID, &poll.Question, &poll.CreatorID, &poll.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, &poll)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	rows.Close()

	for _, poll := range polls {
		if err := loadDetails(ctx, r.db, poll); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

// loadPoll reads a poll with its options and ledgers. With forUpdate the
// poll row stays locked until the surrounding transaction ends.
func loadPoll(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*domain.Poll, error) {
	queryPoll := `
		SELECT id, question, creator_id, created_at
		FROM polls
		WHERE id = $1
	`
	if forUpdate {
		queryPoll += " FOR UPDATE"
	}

	var poll domain.Poll
	err := q.QueryRowContext(ctx, queryPoll, id).Scan(&poll.ID, &poll.Question, &poll.CreatorID, &poll.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	if err := loadDetails(ctx, q, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

func loadDetails(ctx context.Context, q querier, poll *domain.Poll) error {
	options, err := fetchOptions(ctx, q, poll.ID)
	if err != nil {
		return err
	}
	poll.Options = options

	poll.VotedIPs, err = fetchLedger(ctx, q, `SELECT ip FROM poll_voted_ips WHERE poll_id = $1 ORDER BY seq`, poll.ID)
	if err != nil {
		return err
	}
	poll.VotedUserIDs, err = fetchLedger(ctx, q, `SELECT user_id FROM poll_voted_users WHERE poll_id = $1 ORDER BY seq`, poll.ID)
	if err != nil {
		return err
	}
	poll.CreatedAt = poll.CreatedAt.UTC()
	return nil
}

func fetchOptions(ctx context.Context, q querier, pollID uuid.UUID) ([]domain.PollOption, error) {
	queryOptions := `
		SELECT id, poll_id, text, votes
		FROM poll_options
		WHERE poll_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, queryOptions, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	var options []domain.PollOption
	for rows.Next() {
		var opt domain.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}

func fetchLedger(ctx context.Context, q querier, query string, pollID uuid.UUID) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get voter ledger: %w", err)
	}
	defer rows.Close()

	entries := []string{}
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return nil, fmt.Errorf("failed to scan voter ledger: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voter ledger: %w", err)
	}
	return entries, nil
}
