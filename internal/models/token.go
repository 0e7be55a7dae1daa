package models

import "time"

// VotingToken is the single-use bearer credential minted after OTP
// verification. At most one redemption may ever flip Used false→true; the
// record is kept after use for audit.
type VotingToken struct {
	ElectionID string    `json:"election_id"`
	VoterRef   string    `json:"voter_ref"`
	Value      string    `json:"-"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Used       bool      `json:"used"`
	UsedAt     time.Time `json:"used_at,omitempty"`
}
