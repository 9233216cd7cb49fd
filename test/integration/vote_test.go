package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/livepoll/internal/adapters/realtime"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"golang.org/x/net/websocket"
)

func (app *TestApp) newPoll(t *testing.T, options ...string) domain.Poll {
	t.Helper()
	resp := app.createPoll(t, map[string]any{"question": "Vote Test", "options": options})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var poll domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&poll))
	resp.Body.Close()
	return poll
}

func (app *TestApp) vote(t *testing.T, pollID, optionID, userID, address string) int {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"option_id": optionID, "user_id": userID})
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/polls/%s/vote", app.Server.URL, pollID), bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", address)
	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestVoteScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	poll := app.newPoll(t, "A", "B")

	// second client subscribed to the room
	wsURL := "ws" + strings.TrimPrefix(app.Server.URL, "http") + "/ws"
	conn, err := websocket.Dial(wsURL, "", app.Server.URL)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, websocket.JSON.Send(conn, realtime.Frame{
		Type:    realtime.FrameJoin,
		Payload: json.RawMessage(fmt.Sprintf(`{"poll_id":%q}`, poll.ID)),
	}))
	var frame realtime.Frame
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, websocket.JSON.Receive(conn, &frame))
	require.Equal(t, realtime.FrameJoined, frame.Type)

	require.Equal(t, http.StatusOK, app.vote(t, poll.ID.String(), poll.Options[0].ID.String(), "", "1.2.3.4"))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, websocket.JSON.Receive(conn, &frame))
	require.Equal(t, realtime.FrameUpdated, frame.Type)
	var state domain.Poll
	require.NoError(t, json.Unmarshal(frame.Payload, &state))
	assert.Equal(t, int64(1), state.Options[0].Votes)
	assert.Equal(t, int64(0), state.Options[1].Votes)

	// same network, different option
	require.Equal(t, http.StatusForbidden, app.vote(t, poll.ID.String(), poll.Options[1].ID.String(), "", "1.2.3.4"))

	var votesA, votesB, ledger int
	require.NoError(t, app.DB.QueryRow("SELECT votes FROM poll_options WHERE id=$1", poll.Options[0].ID).Scan(&votesA))
	require.NoError(t, app.DB.QueryRow("SELECT votes FROM poll_options WHERE id=$1", poll.Options[1].ID).Scan(&votesB))
	require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM poll_voted_ips WHERE poll_id=$1", poll.ID).Scan(&ledger))
	assert.Equal(t, 1, votesA)
	assert.Equal(t, 0, votesB)
	assert.Equal(t, 1, ledger)
}

func TestVoteIdentityGuard(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	poll := app.newPoll(t, "Opt A", "Opt B")

	require.Equal(t, http.StatusOK, app.vote(t, poll.ID.String(), poll.Options[0].ID.String(), "user_a", "10.0.0.1"))
	assert.Equal(t, http.StatusForbidden, app.vote(t, poll.ID.String(), poll.Options[1].ID.String(), "user_a", "10.0.0.2"))
	assert.Equal(t, http.StatusOK, app.vote(t, poll.ID.String(), poll.Options[1].ID.String(), "user_b", "10.0.0.3"))

	resp, err := app.Client.Get(app.Server.URL + "/api/polls/voted/user_a")
	require.NoError(t, err)
	var voted []domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&voted))
	resp.Body.Close()
	require.Len(t, voted, 1)
	assert.Equal(t, []string{"user_a", "user_b"}, voted[0].VotedUserIDs)
}

func TestConcurrentVotesAreSerialized(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)
	ctx := context.Background()

	poll := app.newPoll(t, "A", "B")

	const voters = 30
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := app.VoteRepo.ApplyVote(ctx, poll.ID, domain.Ballot{
				OptionID: poll.Options[i%2].ID,
				Voter:    domain.Voter{Address: fmt.Sprintf("172.16.0.%d", i)},
			})
			assert.NoError(t, err)
		}(i)
	}

	// the same address racing itself is counted once
	var dupAccepted sync.WaitGroup
	accepted := make(chan struct{}, voters)
	for i := 0; i < voters; i++ {
		dupAccepted.Add(1)
		go func(i int) {
			defer dupAccepted.Done()
			_, err := app.VoteRepo.ApplyVote(ctx, poll.ID, domain.Ballot{
				OptionID: poll.Options[i%2].ID,
				Voter:    domain.Voter{Address: "192.168.1.1"},
			})
			if err == nil {
				accepted <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	dupAccepted.Wait()
	close(accepted)
	assert.Len(t, accepted, 1)

	var total int
	require.NoError(t, app.DB.QueryRow("SELECT SUM(votes) FROM poll_options WHERE poll_id=$1", poll.ID).Scan(&total))
	assert.Equal(t, voters+1, total)

	drifted, err := app.AuditSvc.AuditAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifted)
}

func TestAuditReportsDrift(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	poll := app.newPoll(t, "A", "B")
	_, err := app.DB.Exec("UPDATE poll_options SET votes = 5 WHERE id=$1", poll.Options[0].ID)
	require.NoError(t, err)

	drifted, err := app.AuditSvc.AuditAll(context.Background())
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	assert.Equal(t, poll.ID, drifted[0].PollID)
	assert.Equal(t, int64(5), drifted[0].OptionVotes)
}
