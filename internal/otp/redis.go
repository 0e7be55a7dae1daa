package otp

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// verifyScript performs the check-attempts-delete sequence in one atomic step
// so concurrent verifies against the same identifier cannot race the counter.
// Key expiry stands in for the lazy expiration check.
//
// Returns 1 on match (entry deleted), 0 on mismatch (attempts incremented),
// -1 when no entry exists, -2 when attempts are exhausted (entry deleted).
var verifyScript = redis.NewScript(`
local e = redis.call('HMGET', KEYS[1], 'code', 'attempts')
if not e[1] then
  return -1
end
local attempts = tonumber(e[2]) or 0
if attempts >= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return -2
end
if e[1] == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return 0
`)

// RedisStore keeps passcodes in the shared store with a TTL, so any instance
// can verify a code issued by another. Semantics match MemoryStore.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func otpKey(identifier string) string {
	return "otp:" + identifier
}

func (s *RedisStore) Issue(ctx context.Context, identifier string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	key := otpKey(identifier)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "code", code, "attempts", 0)
	pipe.Expire(ctx, key, TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

func (s *RedisStore) Verify(ctx context.Context, identifier, code string) (bool, error) {
	res, err := verifyScript.Run(ctx, s.rdb, []string{otpKey(identifier)}, code, MaxAttempts).Int()
	if err != nil {
		return false, fmt.Errorf("verify otp: %w", err)
	}
	return res == 1, nil
}

func (s *RedisStore) Regenerate(ctx context.Context, identifier string) (string, error) {
	attempts, err := s.rdb.HGet(ctx, otpKey(identifier), "attempts").Int()
	if err == nil && attempts < MaxAttempts {
		return "", ErrOTPStillValid
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("regenerate otp: %w", err)
	}
	return s.Issue(ctx, identifier)
}
