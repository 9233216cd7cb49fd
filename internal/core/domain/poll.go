package domain

import (
	"time"

	"github.com/google/uuid"
)

// Poll is a question with an immutable, ordered set of options and the
// ledgers of voters that already took part in it.
type Poll struct {
	ID        uuid.UUID    `json:"id"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	CreatorID string       `json:"creator_id"`
	// VotedIPs is never serialized: clients reconcile through VotedUserIDs.
	VotedIPs     []string  `json:"-"`
	VotedUserIDs []string  `json:"voted_user_ids"`
	CreatedAt    time.Time `json:"created_at"`
}

type PollOption struct {
	ID     uuid.UUID `json:"id"`
	PollID uuid.UUID `json:"poll_id"`
	Text   string    `json:"text"`
	Votes  int64     `json:"votes"`
}

// Option returns the option with the given id, if the poll has one.
func (p *Poll) Option(id uuid.UUID) (*PollOption, bool) {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i], true
		}
	}
	return nil, false
}

// TotalVotes sums the option counters. Each accepted vote adds exactly one,
// so the total also orders successive states of the same poll.
func (p *Poll) TotalVotes() int64 {
	var total int64
	for _, opt := range p.Options {
		total += opt.Votes
	}
	return total
}
