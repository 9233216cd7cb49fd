package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

func TestCreatePoll(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewPollService(repo)

	poll, err := svc.Create(context.Background(), ports.CreatePollInput{
		Question:  "  Pick one ",
		Options:   []string{"A", "  ", "B", ""},
		CreatorID: "user_creator",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, poll.ID)
	assert.Equal(t, "Pick one", poll.Question)
	require.Len(t, poll.Options, 2)
	assert.Equal(t, "A", poll.Options[0].Text)
	assert.Equal(t, "B", poll.Options[1].Text)
	for _, opt := range poll.Options {
		assert.Equal(t, int64(0), opt.Votes)
		assert.Equal(t, poll.ID, opt.PollID)
	}
	assert.Empty(t, poll.VotedUserIDs)

	stored, err := repo.GetByID(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, poll.Options, stored.Options)
}

func TestCreatePollValidation(t *testing.T) {
	svc := NewPollService(newMemoryRepo())

	cases := []struct {
		name  string
		input ports.CreatePollInput
		want  error
	}{
		{"missing question", ports.CreatePollInput{Question: " ", Options: []string{"A", "B"}}, domain.ErrQuestionRequired},
		{"one option", ports.CreatePollInput{Question: "Q", Options: []string{"A"}}, domain.ErrNotEnoughOptions},
		{"blank options", ports.CreatePollInput{Question: "Q", Options: []string{"A", "   "}}, domain.ErrNotEnoughOptions},
		{"no options", ports.CreatePollInput{Question: "Q"}, domain.ErrNotEnoughOptions},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestGetPollInvalidID(t *testing.T) {
	svc := NewPollService(newMemoryRepo())

	_, err := svc.GetPoll(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	_, err = svc.GetPoll(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestListByCreatorNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewPollService(repo).(*pollService)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var created []*domain.Poll
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		poll, err := svc.Create(context.Background(), ports.CreatePollInput{Question: "Q", Options: []string{"A", "B"}, CreatorID: "creator"})
		require.NoError(t, err)
		created = append(created, poll)
	}
	_, err := svc.Create(context.Background(), ports.CreatePollInput{Question: "Q", Options: []string{"A", "B"}, CreatorID: "someone-else"})
	require.NoError(t, err)

	polls, err := svc.ListByCreator(context.Background(), "creator")
	require.NoError(t, err)
	require.Len(t, polls, 3)
	assert.Equal(t, created[2].ID, polls[0].ID)
	assert.Equal(t, created[0].ID, polls[2].ID)

	polls, err = svc.ListByCreator(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, polls)

	polls, err = svc.ListByCreator(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, polls)
	assert.Empty(t, polls)
}
