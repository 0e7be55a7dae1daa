package eligibility

import (
	"context"
	"errors"
	"time"

	"github.com/evotehq/evote-backend/internal/election"
	"github.com/evotehq/evote-backend/internal/models"
	"github.com/evotehq/evote-backend/internal/roster"
	"github.com/evotehq/evote-backend/internal/token"
)

var (
	// ErrNotEligible covers unknown identifiers too, so callers cannot
	// probe which identifiers exist.
	ErrNotEligible       = errors.New("not_eligible")
	ErrElectionNotActive = errors.New("election_not_active")
	ErrAlreadyVoted      = errors.New("already_voted")
)

// Gate decides whether an identifier may proceed toward a ballot for an
// election: assignment, eligibility flag, activity window and prior-vote
// status. It runs before OTP issuance and again before token issuance.
type Gate struct {
	roster    *roster.Store
	elections *election.Store
	tokens    *token.Issuer
}

func NewGate(r *roster.Store, e *election.Store, t *token.Issuer) *Gate {
	return &Gate{roster: r, elections: e, tokens: t}
}

// Check returns the resolved voter when every precondition holds, or one of
// the sentinel errors naming the first precondition that failed.
func (g *Gate) Check(ctx context.Context, identifier, electionID string) (*models.Voter, error) {
	e, err := g.elections.Get(ctx, electionID)
	if err != nil {
		if errors.Is(err, election.ErrNotFound) {
			return nil, ErrElectionNotActive
		}
		return nil, err
	}
	if !e.ActiveAt(time.Now()) {
		return nil, ErrElectionNotActive
	}

	v, err := g.roster.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			return nil, ErrNotEligible
		}
		return nil, err
	}
	if !v.Eligible || !v.AssignedTo(electionID) {
		return nil, ErrNotEligible
	}

	ref, err := g.roster.HashedRef(ctx, v.VoterID, electionID)
	if err != nil {
		return nil, err
	}
	voted, err := g.tokens.HasVoted(ctx, electionID, ref)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrAlreadyVoted
	}
	return v, nil
}
