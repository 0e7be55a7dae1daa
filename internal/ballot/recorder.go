package ballot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/evotehq/evote-backend/internal/models"
)

var ErrInvalidCandidate = errors.New("invalid candidate")

// Recorder persists cast ballots. A ballot holds the candidate and an
// integrity hash only; the voter reference goes into the hash input but is
// never stored with the vote.
type Recorder struct {
	rdb *redis.Client
}

func NewRecorder(rdb *redis.Client) *Recorder {
	return &Recorder{rdb: rdb}
}

func ballotsKey(electionID string) string    { return "election:" + electionID + ":ballots" }
func candidatesKey(electionID string) string { return "election:" + electionID + ":candidates" }
func electionKey(electionID string) string   { return "election:" + electionID }

// Record validates the candidate, appends the ballot and increments turnout.
// Both writes go through one MULTI/EXEC so turnout can never run ahead of
// the ballot list.
func (r *Recorder) Record(ctx context.Context, electionID, candidateID, voterRef string) (*models.Vote, error) {
	ok, err := r.rdb.HExists(ctx, candidatesKey(electionID), candidateID).Result()
	if err != nil {
		return nil, fmt.Errorf("check candidate: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCandidate
	}

	now := time.Now()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", electionID, candidateID, voterRef, now.UnixMilli())))
	vote := models.Vote{
		ID:          uuid.New().String(),
		ElectionID:  electionID,
		CandidateID: candidateID,
		CastAt:      now,
		BallotHash:  hex.EncodeToString(sum[:]),
	}
	raw, err := json.Marshal(vote)
	if err != nil {
		return nil, fmt.Errorf("encode ballot: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, ballotsKey(electionID), raw)
	pipe.HIncrBy(ctx, electionKey(electionID), "turnout_count", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record vote: %w", err)
	}
	return &vote, nil
}

// Tally recounts the stored ballots grouped by candidate. Always a fresh
// count, never an incremental one, so repeated tallies agree with the list.
func (r *Recorder) Tally(ctx context.Context, electionID string) (map[string]int64, int64, error) {
	raws, err := r.rdb.LRange(ctx, ballotsKey(electionID), 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("read ballots: %w", err)
	}
	tally := make(map[string]int64)
	var total int64
	for _, raw := range raws {
		var vote models.Vote
		if err := json.Unmarshal([]byte(raw), &vote); err != nil {
			continue
		}
		tally[vote.CandidateID]++
		total++
	}
	return tally, total, nil
}
