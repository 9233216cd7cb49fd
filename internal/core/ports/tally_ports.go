package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type TallyRepository interface {
	PollIDs(ctx context.Context) ([]uuid.UUID, error)
	Report(ctx context.Context, pollID uuid.UUID) (domain.TallyReport, error)
}

type AuditService interface {
	// AuditAll returns the reports of polls whose counters disagree with
	// their ledgers.
	AuditAll(ctx context.Context) ([]domain.TallyReport, error)
}
