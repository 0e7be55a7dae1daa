package roster

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/evotehq/evote-backend/internal/models"
)

func newStoreForTests(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, "test-ref-secret")
}

func TestUpsert_ContactChangeDropsOldIndexes(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	v := &models.Voter{
		VoterID:  "V1",
		Name:     "Priya Sharma",
		Email:    "priya@example.edu",
		Phone:    "+911234567890",
		Eligible: true,
	}
	require.NoError(t, s.Upsert(ctx, v))

	v.Email = "priya.sharma@example.edu"
	v.Phone = "+919999999999"
	require.NoError(t, s.Upsert(ctx, v))

	_, err := s.FindByIdentifier(ctx, "priya@example.edu")
	require.ErrorIs(t, err, ErrNotFound, "the old email must stop resolving")
	_, err = s.FindByIdentifier(ctx, "+911234567890")
	require.ErrorIs(t, err, ErrNotFound, "the old phone must stop resolving")

	got, err := s.FindByIdentifier(ctx, "priya.sharma@example.edu")
	require.NoError(t, err)
	require.Equal(t, "V1", got.VoterID)
	got, err = s.FindByIdentifier(ctx, "+919999999999")
	require.NoError(t, err)
	require.Equal(t, "V1", got.VoterID)
}

func TestUpsert_UnchangedContactKeepsIndex(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	v := &models.Voter{VoterID: "V1", Email: "priya@example.edu", Eligible: true}
	require.NoError(t, s.Upsert(ctx, v))

	// re-import with differently cased email: same index key
	v.Email = "Priya@Example.edu"
	require.NoError(t, s.Upsert(ctx, v))

	got, err := s.FindByIdentifier(ctx, "priya@example.edu")
	require.NoError(t, err)
	require.Equal(t, "V1", got.VoterID)
}

func TestAssignAndRoster(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	require.NoError(t, s.Upsert(ctx, &models.Voter{VoterID: "V1", Eligible: true}))
	require.NoError(t, s.Assign(ctx, "V1", "E1"))

	v, err := s.Get(ctx, "V1")
	require.NoError(t, err)
	require.True(t, v.AssignedTo("E1"))

	n, err := s.RosterSize(ctx, "E1")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, s.Unassign(ctx, "V1", "E1"))
	n, err = s.RosterSize(ctx, "E1")
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
}

func TestHashedRef_StableAndReversible(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	require.NoError(t, s.Upsert(ctx, &models.Voter{VoterID: "V1", Eligible: true}))

	first, err := s.HashedRef(ctx, "V1", "E1")
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := s.HashedRef(ctx, "V1", "E1")
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := s.HashedRef(ctx, "V1", "E2")
	require.NoError(t, err)
	require.NotEqual(t, first, other, "refs must differ per election")

	v, err := s.FindByRef(ctx, "E1", first)
	require.NoError(t, err)
	require.Equal(t, "V1", v.VoterID)
}
