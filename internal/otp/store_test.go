package otp

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStoreForTests(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb), mr
}

// wrongCode returns a 6-digit code guaranteed not to match.
func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func testOneShot(t *testing.T, s Store) {
	ctx := context.Background()
	code, err := s.Issue(ctx, "V1")
	require.NoError(t, err)
	require.Regexp(t, `^\d{6}$`, code)

	ok, err := s.Verify(ctx, "V1", code)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Verify(ctx, "V1", code)
	require.NoError(t, err)
	require.False(t, ok, "a verified code must not be reusable")
}

func testUnknownIdentifier(t *testing.T, s Store) {
	ok, err := s.Verify(context.Background(), "nobody", "123456")
	require.NoError(t, err)
	require.False(t, ok)
}

func testAttemptLockout(t *testing.T, s Store) {
	ctx := context.Background()
	code, err := s.Issue(ctx, "V1")
	require.NoError(t, err)

	for i := 0; i < MaxAttempts; i++ {
		ok, err := s.Verify(ctx, "V1", wrongCode(code))
		require.NoError(t, err)
		require.False(t, ok)
	}

	ok, err := s.Verify(ctx, "V1", code)
	require.NoError(t, err)
	require.False(t, ok, "the correct code must fail after the attempt limit")
}

func testRegenerate(t *testing.T, s Store) {
	ctx := context.Background()
	code, err := s.Issue(ctx, "V1")
	require.NoError(t, err)

	_, err = s.Regenerate(ctx, "V1")
	require.ErrorIs(t, err, ErrOTPStillValid)

	for i := 0; i < MaxAttempts; i++ {
		_, err := s.Verify(ctx, "V1", wrongCode(code))
		require.NoError(t, err)
	}

	fresh, err := s.Regenerate(ctx, "V1")
	require.NoError(t, err)

	ok, err := s.Verify(ctx, "V1", fresh)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryStore_OneShot(t *testing.T)          { testOneShot(t, NewMemoryStore()) }
func TestMemoryStore_UnknownIdentifier(t *testing.T) { testUnknownIdentifier(t, NewMemoryStore()) }
func TestMemoryStore_AttemptLockout(t *testing.T)   { testAttemptLockout(t, NewMemoryStore()) }
func TestMemoryStore_Regenerate(t *testing.T)       { testRegenerate(t, NewMemoryStore()) }

func TestMemoryStore_ExpiredEntryIsPurged(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.ttl = -time.Second

	code, err := s.Issue(ctx, "V1")
	require.NoError(t, err)

	ok, err := s.Verify(ctx, "V1", code)
	require.NoError(t, err)
	require.False(t, ok)

	s.mu.Lock()
	_, exists := s.entries["V1"]
	s.mu.Unlock()
	require.False(t, exists, "expired entry must be removed by the failed check")
}

func TestMemoryStore_IssueOverwritesPriorEntry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.Issue(ctx, "V1")
	require.NoError(t, err)
	second, err := s.Issue(ctx, "V1")
	require.NoError(t, err)

	if first != second {
		ok, err := s.Verify(ctx, "V1", first)
		require.NoError(t, err)
		require.False(t, ok, "overwritten code must no longer verify")
	}
	// the overwrite also reset the attempts counter
	ok, err := s.Verify(ctx, "V1", second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisStore_OneShot(t *testing.T) {
	s, _ := newRedisStoreForTests(t)
	testOneShot(t, s)
}

func TestRedisStore_UnknownIdentifier(t *testing.T) {
	s, _ := newRedisStoreForTests(t)
	testUnknownIdentifier(t, s)
}

func TestRedisStore_AttemptLockout(t *testing.T) {
	s, _ := newRedisStoreForTests(t)
	testAttemptLockout(t, s)
}

func TestRedisStore_Regenerate(t *testing.T) {
	s, _ := newRedisStoreForTests(t)
	testRegenerate(t, s)
}

func TestRedisStore_ExpiredEntryFailsVerify(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreForTests(t)

	code, err := s.Issue(ctx, "V1")
	require.NoError(t, err)

	mr.FastForward(TTL + time.Second)

	ok, err := s.Verify(ctx, "V1", code)
	require.NoError(t, err)
	require.False(t, ok)

	// expiry also unblocks regeneration
	_, err = s.Regenerate(ctx, "V1")
	require.NoError(t, err)
}
