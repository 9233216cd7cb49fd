package domain

import (
	"github.com/google/uuid"
)

// TallyReport compares a poll's counters with its voter ledgers.
type TallyReport struct {
	PollID       uuid.UUID `json:"poll_id"`
	OptionVotes  int64     `json:"option_votes"`
	VotedIPs     int64     `json:"voted_ips"`
	VotedUserIDs int64     `json:"voted_user_ids"`
}

// Consistent reports whether every counted vote has exactly one network
// ledger entry and no identity entry exists without a vote.
func (r TallyReport) Consistent() bool {
	return r.OptionVotes == r.VotedIPs && r.VotedUserIDs <= r.VotedIPs
}
