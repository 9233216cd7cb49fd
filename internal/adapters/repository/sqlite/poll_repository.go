package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{db: db}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO polls (id, question, creator_id, created_at) VALUES (?, ?, ?, ?)`,
		poll.ID.String(), poll.Question, poll.CreatorID, poll.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	for i, opt := range poll.Options {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO poll_options (id, poll_id, position, text, votes) VALUES (?, ?, ?, ?, ?)`,
			opt.ID.String(), poll.ID.String(), i, opt.Text, opt.Votes,
		)
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
	return loadPoll(ctx, r.db, id)
}

func (r *pollRepository) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Poll, error) {
	return r.listPolls(ctx, `
		SELECT id, question, creator_id, created_at
		FROM polls
		WHERE creator_id = ?
		ORDER BY created_at DESC
	`, creatorID)
}

func (r *pollRepository) ListVotedBy(ctx context.Context, userID string) ([]*domain.Poll, error) {
	return r.listPolls(ctx, `
		SELECT p.id, p.question, p.creator_id, p.created_at
		FROM polls p
		JOIN poll_voted_users u ON u.poll_id = p.id
		WHERE u.user_id = ?
		ORDER BY p.created_at DESC
	`, userID)
}

// listPolls drains the header rows before loading details: the pool has a
// single connection, so nested queries would block on it.
func (r *pollRepository) listPolls(ctx context.Context, query string, args ...any) ([]*domain.Poll, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}

	polls := []*domain.Poll{}
	for rows.Next() {
		poll, err := scanPollHeader(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		polls = append(polls, poll)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPollHeader(row rowScanner) (*domain.Poll, error) {
	var (
		poll      domain.Poll
		createdAt int64
	)
	if err := row.Scan(&poll.ID, &poll.Question, &poll.CreatorID, &createdAt); err != nil {
		return nil, err
	}
	poll.CreatedAt = time.Unix(0, createdAt).UTC()
	return &poll, nil
}

func loadPoll(ctx context.Context, q querier, id uuid.UUID) (*domain.Poll, error) {
	row := q.QueryRowContext(ctx, `SELECT id, question, creator_id, created_at FROM polls WHERE id = ?`, id.String())
	poll, err := scanPollHeader(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	if err := loadDetails(ctx, q, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

func loadDetails(ctx context.Context, q querier, poll *domain.Poll) error {
	rows, err := q.QueryContext(ctx, `SELECT id, poll_id, text, votes FROM poll_options WHERE poll_id = ? ORDER BY position`, poll.ID.String())
	if err != nil {
		return fmt.Errorf("failed to get poll options: %w", err)
	}
	var options []domain.PollOption
	for rows.Next() {
		var opt domain.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Votes); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating options: %w", err)
	}
	rows.Close()
	poll.Options = options

	poll.VotedIPs, err = fetchLedger(ctx, q, `SELECT ip FROM poll_voted_ips WHERE poll_id = ? ORDER BY seq`, poll.ID)
	if err != nil {
		return err
	}
	poll.VotedUserIDs, err = fetchLedger(ctx, q, `SELECT user_id FROM poll_voted_users WHERE poll_id = ? ORDER BY seq`, poll.ID)
	return err
}

func fetchLedger(ctx context.Context, q querier, query string, pollID uuid.UUID) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, pollID.String())
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
