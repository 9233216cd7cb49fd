package domain

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoll(texts ...string) *Poll {
	poll := &Poll{ID: uuid.New(), Question: "Pick one"}
	for _, text := range texts {
		poll.Options = append(poll.Options, PollOption{ID: uuid.New(), PollID: poll.ID, Text: text})
	}
	return poll
}

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"203.0.113.5, 10.0.0.1", "203.0.113.5"},
		{"::ffff:203.0.113.5", "203.0.113.5"},
		{"::FFFF:203.0.113.5", "203.0.113.5"},
		{" 198.51.100.7 ", "198.51.100.7"},
		{"::ffff:203.0.113.5,10.0.0.1", "203.0.113.5"},
		{"2001:db8::1", "2001:db8::1"},
		{"1.2.3.4", "1.2.3.4"},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeAddress(tc.raw))
		})
	}
}

func TestGuardRejectsSameNetworkRegardlessOfUser(t *testing.T) {
	poll := newTestPoll("A", "B")
	require.NoError(t, poll.Apply(Ballot{OptionID: poll.Options[0].ID, Voter: Voter{Address: "1.2.3.4", UserID: "user_a"}}))

	for _, userID := range []string{"", "user_a", "user_b"} {
		err := poll.Guard(Voter{Address: "1.2.3.4", UserID: userID})
		assert.ErrorIs(t, err, ErrDuplicateNetwork, "user id %q", userID)
	}
}

func TestGuardRejectsSameUserFromOtherNetwork(t *testing.T) {
	poll := newTestPoll("A", "B")
	require.NoError(t, poll.Apply(Ballot{OptionID: poll.Options[0].ID, Voter: Voter{Address: "1.2.3.4", UserID: "user_a"}}))

	err := poll.Guard(Voter{Address: "5.6.7.8", UserID: "user_a"})
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.NotErrorIs(t, err, ErrDuplicateNetwork)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	assert.NoError(t, poll.Guard(Voter{Address: "5.6.7.8"}))
}

func TestApplyUnknownOptionLeavesPollUntouched(t *testing.T) {
	poll := newTestPoll("A", "B")

	err := poll.Apply(Ballot{OptionID: uuid.New(), Voter: Voter{Address: "1.2.3.4", UserID: "user_a"}})
	require.ErrorIs(t, err, ErrOptionNotFound)

	assert.Equal(t, int64(0), poll.TotalVotes())
	assert.Empty(t, poll.VotedIPs)
	assert.Empty(t, poll.VotedUserIDs)
}

func TestApplyChecksGuardBeforeOption(t *testing.T) {
	poll := newTestPoll("A", "B")
	require.NoError(t, poll.Apply(Ballot{OptionID: poll.Options[0].ID, Voter: Voter{Address: "1.2.3.4"}}))

	err := poll.Apply(Ballot{OptionID: uuid.New(), Voter: Voter{Address: "1.2.3.4"}})
	assert.ErrorIs(t, err, ErrDuplicateNetwork)
}

func TestApplyScenario(t *testing.T) {
	poll := newTestPoll("A", "B")
	require.Len(t, poll.Options, 2)
	assert.Equal(t, int64(0), poll.Options[0].Votes)
	assert.Equal(t, int64(0), poll.Options[1].Votes)

	require.NoError(t, poll.Apply(Ballot{OptionID: poll.Options[0].ID, Voter: Voter{Address: "1.2.3.4"}}))
	assert.Equal(t, int64(1), poll.Options[0].Votes)
	assert.Equal(t, int64(1), poll.TotalVotes())

	err := poll.Apply(Ballot{OptionID: poll.Options[1].ID, Voter: Voter{Address: "1.2.3.4"}})
	assert.ErrorIs(t, err, ErrDuplicateNetwork)
	assert.Equal(t, int64(1), poll.Options[0].Votes)
	assert.Equal(t, int64(0), poll.Options[1].Votes)
}

func TestApplyKeepsTallyEqualToLedger(t *testing.T) {
	poll := newTestPoll("A", "B", "C")

	accepted := 0
	for i := 0; i < 30; i++ {
		// every third voter reuses an earlier address, every fifth an earlier token
		addr := fmt.Sprintf("10.0.0.%d", i)
		if i%3 == 2 {
			addr = fmt.Sprintf("10.0.0.%d", i-1)
		}
		userID := fmt.Sprintf("user_%d", i)
		if i%5 == 4 {
			userID = "user_0"
		}

		err := poll.Apply(Ballot{OptionID: poll.Options[i%3].ID, Voter: Voter{Address: addr, UserID: userID}})
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyVoted)
		}
	}

	assert.Equal(t, int64(accepted), poll.TotalVotes())
	assert.Len(t, poll.VotedIPs, accepted)
	assert.True(t, TallyReport{
		OptionVotes:  poll.TotalVotes(),
		VotedIPs:     int64(len(poll.VotedIPs)),
		VotedUserIDs: int64(len(poll.VotedUserIDs)),
	}.Consistent())
}
