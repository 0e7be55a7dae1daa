package ballot

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRecorderForTests(t *testing.T) (*Recorder, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	require.NoError(t, rdb.HSet(ctx, "election:E1", "id", "E1", "turnout_count", 0).Err())
	require.NoError(t, rdb.HSet(ctx, "election:E1:candidates", "c1", "Alice", "c2", "Bob").Err())
	return NewRecorder(rdb), rdb
}

func TestRecord_InvalidCandidate(t *testing.T) {
	r, _ := newRecorderForTests(t)
	_, err := r.Record(context.Background(), "E1", "c9", "h1")
	require.ErrorIs(t, err, ErrInvalidCandidate)
}

func TestRecord_AppendsBallotAndIncrementsTurnout(t *testing.T) {
	ctx := context.Background()
	r, rdb := newRecorderForTests(t)

	vote, err := r.Record(ctx, "E1", "c1", "h1")
	require.NoError(t, err)
	require.Equal(t, "c1", vote.CandidateID)
	require.Len(t, vote.BallotHash, 64)

	n, err := rdb.LLen(ctx, "election:E1:ballots").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	turnout, err := rdb.HGet(ctx, "election:E1", "turnout_count").Int64()
	require.NoError(t, err)
	require.EqualValues(t, 1, turnout)
}

func TestTally_GroupsByCandidate(t *testing.T) {
	ctx := context.Background()
	r, _ := newRecorderForTests(t)

	for i := 0; i < 3; i++ {
		_, err := r.Record(ctx, "E1", "c1", "h1")
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, err := r.Record(ctx, "E1", "c2", "h2")
		require.NoError(t, err)
	}

	tally, total, err := r.Tally(ctx, "E1")
	require.NoError(t, err)
	require.EqualValues(t, 8, total)
	require.Equal(t, map[string]int64{"c1": 3, "c2": 5}, tally)

	// a second count is a fresh recount of the same rows
	again, total2, err := r.Tally(ctx, "E1")
	require.NoError(t, err)
	require.EqualValues(t, 8, total2)
	require.Equal(t, tally, again)
}

func TestTally_EmptyElection(t *testing.T) {
	r, _ := newRecorderForTests(t)
	tally, total, err := r.Tally(context.Background(), "E1")
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, tally)
}
