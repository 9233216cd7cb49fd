package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

func samplePoll() *domain.Poll {
	id := uuid.New()
	return &domain.Poll{
		ID:       id,
		Question: "Best editor?",
		Options: []domain.PollOption{
			{ID: uuid.New(), PollID: id, Text: "Vim", Votes: 1200},
			{ID: uuid.New(), PollID: id, Text: "Emacs", Votes: 300},
		},
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
}

func TestResolveOption(t *testing.T) {
	poll := samplePoll()

	byID, err := resolveOption(poll, poll.Options[1].ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Emacs", byID.Text)

	byText, err := resolveOption(poll, " vim ")
	require.NoError(t, err)
	assert.Equal(t, poll.Options[0].ID, byText.ID)

	byPosition, err := resolveOption(poll, "2")
	require.NoError(t, err)
	assert.Equal(t, poll.Options[1].ID, byPosition.ID)

	for _, choice := range []string{"0", "3", "nano"} {
		_, err := resolveOption(poll, choice)
		assert.ErrorIs(t, err, domain.ErrOptionNotFound, choice)
	}
}

func TestRenderPoll(t *testing.T) {
	poll := samplePoll()

	out := renderPoll(poll, poll.Options[0].ID.String(), 80)
	assert.Contains(t, out, "Best editor?")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "20.0%")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "1,500 votes")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "✓")

	empty := &domain.Poll{Question: "Q", Options: []domain.PollOption{{Text: "A"}, {Text: "B"}}}
	out = renderPoll(empty, "?", 0)
	assert.Contains(t, out, "0.0%")
	assert.Contains(t, out, "0 votes")
	assert.Contains(t, out, "you already voted")
}

func TestRenderListEmpty(t *testing.T) {
	assert.Contains(t, renderList("Voted in", nil), "none")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
