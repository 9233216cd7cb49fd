package domain

import (
	"slices"
	"strings"
)

const ipv4MappedPrefix = "::ffff:"

// NormalizeAddress reduces a raw client address to the form stored in the
// network ledger: the first hop of a proxy chain, without the IPv4-mapped
// IPv6 prefix.
func NormalizeAddress(raw string) string {
	addr, _, _ := strings.Cut(raw, ",")
	addr = strings.TrimSpace(addr)
	if len(addr) >= len(ipv4MappedPrefix) && strings.EqualFold(addr[:len(ipv4MappedPrefix)], ipv4MappedPrefix) {
		addr = addr[len(ipv4MappedPrefix):]
	}
	return addr
}

// Guard decides whether the voter may vote on the poll. The network check
// always runs first and does not depend on the user id.
func (p *Poll) Guard(v Voter) error {
	if slices.Contains(p.VotedIPs, v.Address) {
		return ErrDuplicateNetwork
	}
	if v.UserID != "" && slices.Contains(p.VotedUserIDs, v.UserID) {
		return ErrDuplicateIdentity
	}
	return nil
}

// Apply runs the guard, resolves the option and records the vote in memory.
// On error the poll is left untouched. Callers must hold whatever lock
// serializes writers of this poll until the result is persisted.
func (p *Poll) Apply(b Ballot) error {
	if err := p.Guard(b.Voter); err != nil {
		return err
	}

	opt, ok := p.Option(b.OptionID)
	if !ok {
		return ErrOptionNotFound
	}

	opt.Votes++
	p.VotedIPs = append(p.VotedIPs, b.Voter.Address)
	if b.Voter.UserID != "" {
		p.VotedUserIDs = append(p.VotedUserIDs, b.Voter.UserID)
	}
	return nil
}
