package roster

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"

	"github.com/evotehq/evote-backend/internal/models"
)

var ErrNotFound = errors.New("voter not found")

// Store persists voter records and their election assignments. Voters live in
// hashes keyed by voterId with email/phone lookup indexes; per-election
// hashedRefs are computed once and kept in a refs hash.
type Store struct {
	rdb       *redis.Client
	refSecret []byte
}

func NewStore(rdb *redis.Client, refSecret string) *Store {
	return &Store{rdb: rdb, refSecret: []byte(refSecret)}
}

func voterKey(voterID string) string     { return "voter:" + voterID }
func electionsKey(voterID string) string { return "voter:" + voterID + ":elections" }
func refsKey(voterID string) string      { return "voter:" + voterID + ":refs" }
func emailIdx(email string) string       { return "voteridx:email:" + strings.ToLower(email) }
func phoneIdx(phone string) string       { return "voteridx:phone:" + phone }
func rosterKey(electionID string) string { return "election:" + electionID + ":roster" }
func refIdx(electionID, ref string) string {
	return "voteridx:ref:" + electionID + ":" + ref
}

// Upsert writes the voter hash and refreshes the contact lookup indexes.
func (s *Store) Upsert(ctx context.Context, v *models.Voter) error {
	if v.VoterID == "" {
		return errors.New("voterId required")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}

	// Changed contact details must not leave the old lookup index behind.
	prev, err := s.rdb.HMGet(ctx, voterKey(v.VoterID), "email", "phone").Result()
	if err != nil {
		return fmt.Errorf("upsert voter: %w", err)
	}
	oldEmail, _ := prev[0].(string)
	oldPhone, _ := prev[1].(string)

	pipe := s.rdb.TxPipeline()
	if oldEmail != "" && !strings.EqualFold(oldEmail, v.Email) {
		pipe.Del(ctx, emailIdx(oldEmail))
	}
	if oldPhone != "" && oldPhone != v.Phone {
		pipe.Del(ctx, phoneIdx(oldPhone))
	}
	pipe.HSet(ctx, voterKey(v.VoterID), map[string]interface{}{
		"voter_id":   v.VoterID,
		"name":       v.Name,
		"rollno":     v.RollNo,
		"dept":       v.Dept,
		"year":       v.Year,
		"email":      v.Email,
		"phone":      v.Phone,
		"eligible":   fmt.Sprintf("%t", v.Eligible),
		"created_at": v.CreatedAt.Format(time.RFC3339),
	})
	if v.Email != "" {
		pipe.Set(ctx, emailIdx(v.Email), v.VoterID, 0)
	}
	if v.Phone != "" {
		pipe.Set(ctx, phoneIdx(v.Phone), v.VoterID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert voter: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, voterID string) (*models.Voter, error) {
	data, err := s.rdb.HGetAll(ctx, voterKey(voterID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get voter: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	var v models.Voter
	if err := mapstructure.Decode(data, &v); err != nil {
		return nil, fmt.Errorf("decode voter: %w", err)
	}
	v.Eligible = data["eligible"] == "true"
	if t, err := time.Parse(time.RFC3339, data["created_at"]); err == nil {
		v.CreatedAt = t
	}
	assigned, err := s.rdb.SMembers(ctx, electionsKey(voterID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get assignments: %w", err)
	}
	v.AssignedElections = assigned
	return &v, nil
}

// FindByIdentifier resolves a voter by voterId, email (case-insensitive) or
// phone. Exact matches only.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (*models.Voter, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return nil, ErrNotFound
	}

	if n, err := s.rdb.Exists(ctx, voterKey(id)).Result(); err != nil {
		return nil, fmt.Errorf("lookup voter: %w", err)
	} else if n == 1 {
		return s.Get(ctx, id)
	}

	idx := phoneIdx(id)
	if strings.Contains(id, "@") {
		idx = emailIdx(id)
	}
	voterID, err := s.rdb.Get(ctx, idx).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup voter index: %w", err)
	}
	return s.Get(ctx, voterID)
}

func (s *Store) Assign(ctx context.Context, voterID, electionID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, electionsKey(voterID), electionID)
	pipe.SAdd(ctx, rosterKey(electionID), voterID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("assign voter: %w", err)
	}
	return nil
}

func (s *Store) Unassign(ctx context.Context, voterID, electionID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.SRem(ctx, electionsKey(voterID), electionID)
	pipe.SRem(ctx, rosterKey(electionID), voterID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("unassign voter: %w", err)
	}
	return nil
}

// SetAssignments replaces the voter's election set with the given one.
func (s *Store) SetAssignments(ctx context.Context, voterID string, electionIDs []string) error {
	current, err := s.rdb.SMembers(ctx, electionsKey(voterID)).Result()
	if err != nil {
		return fmt.Errorf("get assignments: %w", err)
	}
	want := make(map[string]bool, len(electionIDs))
	for _, id := range electionIDs {
		want[id] = true
	}
	for _, id := range current {
		if !want[id] {
			if err := s.Unassign(ctx, voterID, id); err != nil {
				return err
			}
		}
	}
	for _, id := range electionIDs {
		if err := s.Assign(ctx, voterID, id); err != nil {
			return err
		}
	}
	return nil
}

// RosterSize counts voters assigned to the election.
func (s *Store) RosterSize(ctx context.Context, electionID string) (int64, error) {
	n, err := s.rdb.SCard(ctx, rosterKey(electionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("roster size: %w", err)
	}
	return n, nil
}

// ListByElection returns the voters assigned to an election.
func (s *Store) ListByElection(ctx context.Context, electionID string) ([]models.Voter, error) {
	ids, err := s.rdb.SMembers(ctx, rosterKey(electionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	voters := make([]models.Voter, 0, len(ids))
	for _, id := range ids {
		v, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		voters = append(voters, *v)
	}
	return voters, nil
}

// List scans every voter hash, skipping index and sub-keys by segment count.
func (s *Store) List(ctx context.Context) ([]models.Voter, error) {
	var cursor uint64
	voters := make([]models.Voter, 0)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, "voter:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan voters: %w", err)
		}
		for _, key := range keys {
			if strings.Count(key, ":") != 1 {
				continue
			}
			v, err := s.Get(ctx, strings.TrimPrefix(key, "voter:"))
			if err != nil {
				continue
			}
			voters = append(voters, *v)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return voters, nil
}

// HashedRef returns the voter's pseudonymous reference for an election,
// computing and persisting it on first use. The ref is deterministic per
// (voter, election) pair; a reverse index supports post-redemption
// eligibility rechecks.
func (s *Store) HashedRef(ctx context.Context, voterID, electionID string) (string, error) {
	ref, err := s.rdb.HGet(ctx, refsKey(voterID), electionID).Result()
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get hashed ref: %w", err)
	}

	mac := hmac.New(sha256.New, s.refSecret)
	mac.Write([]byte(voterID + "|" + electionID))
	ref = hex.EncodeToString(mac.Sum(nil))

	pipe := s.rdb.TxPipeline()
	pipe.HSetNX(ctx, refsKey(voterID), electionID, ref)
	pipe.Set(ctx, refIdx(electionID, ref), voterID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("persist hashed ref: %w", err)
	}
	return ref, nil
}

// FindByRef resolves a hashedRef back to the voter for defense-in-depth
// checks after token redemption.
func (s *Store) FindByRef(ctx context.Context, electionID, ref string) (*models.Voter, error) {
	voterID, err := s.rdb.Get(ctx, refIdx(electionID, ref)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup ref index: %w", err)
	}
	return s.Get(ctx, voterID)
}
