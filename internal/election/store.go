package election

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"

	"github.com/evotehq/evote-backend/internal/models"
)

var (
	ErrNotFound      = errors.New("election not found")
	ErrAlreadyClosed = errors.New("election already closed")
	ErrNotStarted    = errors.New("election was never started")
	ErrEndInPast     = errors.New("end time is in the past")
)

// Store persists elections as Redis hashes with candidate and tally
// sub-hashes. Status moves draft → running → closed; closed is terminal.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func electionKey(id string) string   { return "election:" + id }
func candidatesKey(id string) string { return "election:" + id + ":candidates" }
func tallyKey(id string) string      { return "election:" + id + ":tally" }

// Create assigns an id and persists the election in draft status.
func (s *Store) Create(ctx context.Context, e *models.Election) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.Status = models.StatusDraft
	e.CreatedAt = time.Now()

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, electionKey(e.ID), map[string]interface{}{
		"id":                   e.ID,
		"title":                e.Title,
		"description":          e.Description,
		"status":               e.Status,
		"start_at":             e.StartAt.Format(time.RFC3339),
		"end_at":               e.EndAt.Format(time.RFC3339),
		"eligible_voter_count": 0,
		"turnout_count":        0,
		"results_published":    "false",
		"created_at":           e.CreatedAt.Format(time.RFC3339),
	})
	for _, c := range e.Candidates {
		pipe.HSet(ctx, candidatesKey(e.ID), c.ID, c.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create election: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Election, error) {
	data, err := s.rdb.HGetAll(ctx, electionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get election: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	var e models.Election
	if err := mapstructure.Decode(data, &e); err != nil {
		return nil, fmt.Errorf("decode election: %w", err)
	}
	if n, err := strconv.ParseInt(data["eligible_voter_count"], 10, 64); err == nil {
		e.EligibleVoterCount = n
	}
	if n, err := strconv.ParseInt(data["turnout_count"], 10, 64); err == nil {
		e.TurnoutCount = n
	}
	if t, err := time.Parse(time.RFC3339, data["start_at"]); err == nil {
		e.StartAt = t
	}
	if t, err := time.Parse(time.RFC3339, data["end_at"]); err == nil {
		e.EndAt = t
	}
	if t, err := time.Parse(time.RFC3339, data["created_at"]); err == nil {
		e.CreatedAt = t
	}
	e.ResultsPublished = data["results_published"] == "true"

	candidates, err := s.rdb.HGetAll(ctx, candidatesKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get candidates: %w", err)
	}
	for cid, name := range candidates {
		e.Candidates = append(e.Candidates, models.Candidate{ID: cid, Name: name})
	}

	if e.ResultsPublished {
		raw, err := s.rdb.HGetAll(ctx, tallyKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("get tally: %w", err)
		}
		e.Tally = make(map[string]int64, len(raw))
		for cid, count := range raw {
			n, _ := strconv.ParseInt(count, 10, 64)
			e.Tally[cid] = n
		}
	}
	return &e, nil
}

// Update rewrites the editable fields. Closed elections are immutable.
func (s *Store) Update(ctx context.Context, id string, e *models.Election) (*models.Election, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.StatusClosed {
		return nil, ErrAlreadyClosed
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, electionKey(id), map[string]interface{}{
		"title":       e.Title,
		"description": e.Description,
		"start_at":    e.StartAt.Format(time.RFC3339),
		"end_at":      e.EndAt.Format(time.RFC3339),
	})
	pipe.Del(ctx, candidatesKey(id))
	for _, c := range e.Candidates {
		pipe.HSet(ctx, candidatesKey(id), c.ID, c.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("update election: %w", err)
	}
	return s.Get(ctx, id)
}

// List scans election hashes, skipping candidate/ballot/tally sub-keys.
func (s *Store) List(ctx context.Context) ([]models.Election, error) {
	var cursor uint64
	elections := make([]models.Election, 0)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, "election:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan elections: %w", err)
		}
		for _, key := range keys {
			if strings.Count(key, ":") != 1 {
				continue
			}
			e, err := s.Get(ctx, strings.TrimPrefix(key, "election:"))
			if err != nil {
				continue
			}
			elections = append(elections, *e)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return elections, nil
}

// ListActive returns running elections currently inside their window.
func (s *Store) ListActive(ctx context.Context) ([]models.Election, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	active := all[:0]
	for _, e := range all {
		if e.ActiveAt(now) {
			active = append(active, e)
		}
	}
	return active, nil
}

// Start moves a draft election to running. If startAt is missing or in the
// future it is pulled forward to now so the election is active immediately.
func (s *Store) Start(ctx context.Context, id string) (*models.Election, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == models.StatusClosed {
		return nil, ErrAlreadyClosed
	}
	now := time.Now()
	if !e.EndAt.IsZero() && now.After(e.EndAt) {
		return nil, ErrEndInPast
	}

	update := map[string]interface{}{"status": models.StatusRunning}
	if e.StartAt.IsZero() || now.Before(e.StartAt) {
		update["start_at"] = now.Format(time.RFC3339)
	}
	if err := s.rdb.HSet(ctx, electionKey(id), update).Err(); err != nil {
		return nil, fmt.Errorf("start election: %w", err)
	}
	return s.Get(ctx, id)
}

// Close ends the election and publishes the given tally. Closing an
// already-closed election just republishes a fresh recount, so a repeated
// end call can never double-count. Draft elections cannot be closed.
func (s *Store) Close(ctx context.Context, id string, tally map[string]int64) (*models.Election, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == models.StatusDraft {
		return nil, ErrNotStarted
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, electionKey(id), map[string]interface{}{
		"status":            models.StatusClosed,
		"results_published": "true",
	})
	pipe.Del(ctx, tallyKey(id))
	for cid, count := range tally {
		pipe.HSet(ctx, tallyKey(id), cid, count)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("close election: %w", err)
	}
	return s.Get(ctx, id)
}

// SetEligibleCount records the roster size after an import or assignment
// change.
func (s *Store) SetEligibleCount(ctx context.Context, id string, n int64) error {
	if err := s.rdb.HSet(ctx, electionKey(id), "eligible_voter_count", n).Err(); err != nil {
		return fmt.Errorf("set eligible count: %w", err)
	}
	return nil
}
