package eligibility

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/evotehq/evote-backend/internal/election"
	"github.com/evotehq/evote-backend/internal/models"
	"github.com/evotehq/evote-backend/internal/roster"
	"github.com/evotehq/evote-backend/internal/token"
)

type fixture struct {
	gate      *Gate
	roster    *roster.Store
	elections *election.Store
	tokens    *token.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	r := roster.NewStore(rdb, "test-ref-secret")
	e := election.NewStore(rdb)
	tok := token.NewIssuer(rdb)
	return &fixture{gate: NewGate(r, e, tok), roster: r, elections: e, tokens: tok}
}

func (f *fixture) runningElection(t *testing.T) *models.Election {
	t.Helper()
	ctx := context.Background()
	e := &models.Election{
		Title:      "Hostel Committee",
		Candidates: []models.Candidate{{ID: "c1", Name: "Alice"}},
		StartAt:    time.Now().Add(-time.Hour),
		EndAt:      time.Now().Add(time.Hour),
	}
	require.NoError(t, f.elections.Create(ctx, e))
	started, err := f.elections.Start(ctx, e.ID)
	require.NoError(t, err)
	return started
}

func (f *fixture) addVoter(t *testing.T, electionID string) *models.Voter {
	t.Helper()
	ctx := context.Background()
	v := &models.Voter{
		VoterID:  "V100",
		Name:     "Priya Sharma",
		Email:    "Priya@Example.edu",
		Eligible: true,
	}
	require.NoError(t, f.roster.Upsert(ctx, v))
	require.NoError(t, f.roster.Assign(ctx, v.VoterID, electionID))
	return v
}

func TestCheck_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.runningElection(t)
	f.addVoter(t, e.ID)

	v, err := f.gate.Check(ctx, "V100", e.ID)
	require.NoError(t, err)
	require.Equal(t, "V100", v.VoterID)
}

func TestCheck_EmailLookupIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.runningElection(t)
	f.addVoter(t, e.ID)

	v, err := f.gate.Check(ctx, "priya@example.edu", e.ID)
	require.NoError(t, err)
	require.Equal(t, "V100", v.VoterID)
}

func TestCheck_UnknownIdentifier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.runningElection(t)

	_, err := f.gate.Check(ctx, "nobody@example.edu", e.ID)
	require.ErrorIs(t, err, ErrNotEligible)
}

func TestCheck_UnassignedVoter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.runningElection(t)
	other := f.runningElection(t)
	f.addVoter(t, other.ID)

	_, err := f.gate.Check(ctx, "V100", e.ID)
	require.ErrorIs(t, err, ErrNotEligible)
}

func TestCheck_IneligibleFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.runningElection(t)
	v := f.addVoter(t, e.ID)

	v.Eligible = false
	require.NoError(t, f.roster.Upsert(ctx, v))

	_, err := f.gate.Check(ctx, "V100", e.ID)
	require.ErrorIs(t, err, ErrNotEligible)
}

func TestCheck_DraftElection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := &models.Election{
		Title:      "Not yet open",
		Candidates: []models.Candidate{{ID: "c1", Name: "Alice"}},
		StartAt:    time.Now().Add(-time.Hour),
		EndAt:      time.Now().Add(time.Hour),
	}
	require.NoError(t, f.elections.Create(ctx, e))
	f.addVoter(t, e.ID)

	_, err := f.gate.Check(ctx, "V100", e.ID)
	require.ErrorIs(t, err, ErrElectionNotActive)
}

func TestCheck_MissingElection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.gate.Check(ctx, "V100", "no-such-election")
	require.ErrorIs(t, err, ErrElectionNotActive)
}

func TestCheck_AlreadyVotedAfterRedemption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.runningElection(t)
	v := f.addVoter(t, e.ID)

	ref, err := f.roster.HashedRef(ctx, v.VoterID, e.ID)
	require.NoError(t, err)
	value, err := f.tokens.Issue(ctx, e.ID, ref, 0)
	require.NoError(t, err)
	_, err = f.tokens.Redeem(ctx, e.ID, value)
	require.NoError(t, err)

	_, err = f.gate.Check(ctx, "V100", e.ID)
	require.ErrorIs(t, err, ErrAlreadyVoted)
}
