package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type fakeTallyRepo struct {
	reports map[uuid.UUID]domain.TallyReport
	failOn  uuid.UUID
}

func (r *fakeTallyRepo) PollIDs(context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.reports))
	for id := range r.reports {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeTallyRepo) Report(_ context.Context, pollID uuid.UUID) (domain.TallyReport, error) {
	if pollID == r.failOn {
		return domain.TallyReport{}, errors.New("boom")
	}
	return r.reports[pollID], nil
}

func TestAuditAllReportsDrift(t *testing.T) {
	good, drift := uuid.New(), uuid.New()
	repo := &fakeTallyRepo{reports: map[uuid.UUID]domain.TallyReport{
		good:  {PollID: good, OptionVotes: 3, VotedIPs: 3, VotedUserIDs: 2},
		drift: {PollID: drift, OptionVotes: 4, VotedIPs: 3, VotedUserIDs: 1},
	}}

	reports, err := NewAuditService(repo).AuditAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, drift, reports[0].PollID)
}

func TestAuditAllPropagatesErrors(t *testing.T) {
	bad := uuid.New()
	repo := &fakeTallyRepo{
		reports: map[uuid.UUID]domain.TallyReport{bad: {PollID: bad}},
		failOn:  bad,
	}

	_, err := NewAuditService(repo).AuditAll(context.Background())
	assert.ErrorContains(t, err, bad.String())
}
