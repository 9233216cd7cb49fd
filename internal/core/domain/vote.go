package domain

import (
	"github.com/google/uuid"
)

// Voter carries the two weak identity signals of a vote attempt. Address is
// expected to be normalized with NormalizeAddress. UserID is optional and
// never verified.
type Voter struct {
	Address string
	UserID  string
}

type Ballot struct {
	OptionID uuid.UUID
	Voter    Voter
}
