package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evotehq/evote-backend/internal/models"
)

// DefaultTTL bounds the window between OTP verification and casting.
const DefaultTTL = time.Hour

var (
	// ErrInvalidOrUsedToken is deliberately generic: callers cannot tell
	// whether the token never existed, was already used, or expired.
	ErrInvalidOrUsedToken = errors.New("invalid_or_used_token")
	// ErrTokenCollision means issuance kept hitting existing token values,
	// which should never happen with 192-bit values.
	ErrTokenCollision = errors.New("token value collision")
)

// createScript persists a token only if the (election, value) key is free,
// enforcing uniqueness at the store rather than trusting randomness.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'voter_ref', ARGV[1],
  'issued_at', ARGV[2],
  'expires_at', ARGV[3],
  'used', '0')
return 1
`)

// redeemScript is the anti-double-vote core: the unused-and-unexpired check
// and the used flag flip happen in one atomic step, so N concurrent redeems
// of the same value produce exactly one winner. The voterRef lands in the
// election's voted set in the same step.
var redeemScript = redis.NewScript(`
local t = redis.call('HMGET', KEYS[1], 'used', 'expires_at', 'voter_ref', 'issued_at')
if not t[1] then
  return false
end
if t[1] ~= '0' then
  return false
end
if tonumber(t[2]) <= tonumber(ARGV[1]) then
  return false
end
redis.call('HSET', KEYS[1], 'used', '1', 'used_at', ARGV[1])
redis.call('SADD', KEYS[2], t[3])
return {t[3], t[4], t[2]}
`)

// Issuer mints and redeems single-use voting tokens. Token records are never
// deleted; they are retained for audit.
type Issuer struct {
	rdb *redis.Client
}

func NewIssuer(rdb *redis.Client) *Issuer {
	return &Issuer{rdb: rdb}
}

func tokenKey(electionID, value string) string {
	return "token:" + electionID + ":" + value
}

func votedKey(electionID string) string {
	return "election:" + electionID + ":voted"
}

// Issue mints a token scoped to (electionID, voterRef). A ttl of zero means
// DefaultTTL. The returned value is the bearer credential for one vote.
func (i *Issuer) Issue(ctx context.Context, electionID, voterRef string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	for attempt := 0; attempt < 3; attempt++ {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		value := hex.EncodeToString(buf)
		now := time.Now()
		created, err := createScript.Run(ctx, i.rdb,
			[]string{tokenKey(electionID, value)},
			voterRef, now.Unix(), now.Add(ttl).Unix(),
		).Int()
		if err != nil {
			return "", fmt.Errorf("issue token: %w", err)
		}
		if created == 1 {
			return value, nil
		}
	}
	return "", ErrTokenCollision
}

// Redeem atomically consumes the token. It returns the redeemed record, or
// ErrInvalidOrUsedToken when no row matched (missing, used, expired, or
// scoped to a different election).
func (i *Issuer) Redeem(ctx context.Context, electionID, value string) (*models.VotingToken, error) {
	now := time.Now()
	res, err := redeemScript.Run(ctx, i.rdb,
		[]string{tokenKey(electionID, value), votedKey(electionID)},
		now.Unix(),
	).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidOrUsedToken
		}
		return nil, fmt.Errorf("redeem token: %w", err)
	}
	if len(res) != 3 {
		return nil, ErrInvalidOrUsedToken
	}

	voterRef, _ := res[0].(string)
	issuedAt := parseUnix(res[1])
	expiresAt := parseUnix(res[2])
	return &models.VotingToken{
		ElectionID: electionID,
		VoterRef:   voterRef,
		Value:      value,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		Used:       true,
		UsedAt:     now,
	}, nil
}

// HasVoted checks the election's voted set. This is the secondary defense
// against double voting; redemption atomicity is the primary one.
func (i *Issuer) HasVoted(ctx context.Context, electionID, voterRef string) (bool, error) {
	voted, err := i.rdb.SIsMember(ctx, votedKey(electionID), voterRef).Result()
	if err != nil {
		return false, fmt.Errorf("check voted set: %w", err)
	}
	return voted, nil
}

func parseUnix(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
