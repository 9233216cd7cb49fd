package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type tallyRepository struct {
	db *sql.DB
}

func NewTallyRepository(db *sql.DB) ports.TallyRepository {
	return &tallyRepository{db: db}
}

func (r *tallyRepository) PollIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM polls`)
	if err != nil {
		return nil, fmt.Errorf("failed to list poll ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan poll id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *tallyRepository) Report(ctx context.Context, pollID uuid.UUID) (domain.TallyReport, error) {
	id := pollID.String()
	report := domain.TallyReport{PollID: pollID}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COALESCE(SUM(votes), 0) FROM poll_options WHERE poll_id = ?),
			(SELECT COUNT(*) FROM poll_voted_ips WHERE poll_id = ?),
			(SELECT COUNT(*) FROM poll_voted_users WHERE poll_id = ?)
	`, id, id, id).Scan(&report.OptionVotes, &report.VotedIPs, &report.VotedUserIDs)
	if err != nil {
		return domain.TallyReport{}, fmt.Errorf("failed to summarize tally for poll %s: %w", pollID, err)
	}
	return report, nil
}
