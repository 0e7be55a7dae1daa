package models

import "time"

// Vote carries no voter identity. BallotHash is an integrity fingerprint over
// the cast parameters, not a signature.
type Vote struct {
	ID          string    `json:"id"`
	ElectionID  string    `json:"election_id"`
	CandidateID string    `json:"candidate_id"`
	CastAt      time.Time `json:"cast_at"`
	BallotHash  string    `json:"ballot_hash"`
}
