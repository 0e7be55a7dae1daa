package election

import (
	"context"
	"testing"
	"time"

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
	return NewStore(rdb)
}

func draftElection() *models.Election {
	now := time.Now()
	return &models.Election{
		Title:       "Student Council 2026",
		Description: "Annual council election",
		Candidates: []models.Candidate{
			{ID: "c1", Name: "Alice"},
			{ID: "c2", Name: "Bob"},
		},
		StartAt: now.Add(-time.Hour),
		EndAt:   now.Add(time.Hour),
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	e := draftElection()
	require.NoError(t, s.Create(ctx, e))
	require.NotEmpty(t, e.ID)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, e.Title, got.Title)
	require.Equal(t, models.StatusDraft, got.Status)
	require.False(t, got.ResultsPublished)
	require.Len(t, got.Candidates, 2)
	require.Equal(t, e.StartAt.Unix(), got.StartAt.Unix())
	require.Equal(t, e.EndAt.Unix(), got.EndAt.Unix())
}

func TestGet_NotFound(t *testing.T) {
	s := newStoreForTests(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	e := draftElection()
	require.NoError(t, s.Create(ctx, e))

	started, err := s.Start(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusRunning, started.Status)
	require.True(t, started.ActiveAt(time.Now()))
}

func TestStart_PullsFutureStartForward(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	e := draftElection()
	e.StartAt = time.Now().Add(time.Hour)
	e.EndAt = time.Now().Add(2 * time.Hour)
	require.NoError(t, s.Create(ctx, e))

	started, err := s.Start(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, started.ActiveAt(time.Now()), "starting must activate immediately")
}

func TestStart_EndInPast(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	e := draftElection()
	e.EndAt = time.Now().Add(-time.Minute)
	require.NoError(t, s.Create(ctx, e))

	_, err := s.Start(ctx, e.ID)
	require.ErrorIs(t, err, ErrEndInPast)
}

func TestClose_PublishesTallyIdempotently(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	e := draftElection()
	require.NoError(t, s.Create(ctx, e))
	_, err := s.Start(ctx, e.ID)
	require.NoError(t, err)

	closed, err := s.Close(ctx, e.ID, map[string]int64{"c1": 3, "c2": 5})
	require.NoError(t, err)
	require.Equal(t, models.StatusClosed, closed.Status)
	require.True(t, closed.ResultsPublished)
	require.Equal(t, map[string]int64{"c1": 3, "c2": 5}, closed.Tally)

	// a second close republishes the recount without state damage
	closed, err = s.Close(ctx, e.ID, map[string]int64{"c1": 3, "c2": 5})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"c1": 3, "c2": 5}, closed.Tally)

	_, err = s.Start(ctx, e.ID)
	require.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestClose_DraftRejected(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	e := draftElection()
	require.NoError(t, s.Create(ctx, e))

	_, err := s.Close(ctx, e.ID, nil)
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestUpdate_ClosedIsImmutable(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	e := draftElection()
	require.NoError(t, s.Create(ctx, e))
	_, err := s.Start(ctx, e.ID)
	require.NoError(t, err)
	_, err = s.Close(ctx, e.ID, nil)
	require.NoError(t, err)

	_, err = s.Update(ctx, e.ID, draftElection())
	require.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestList_SkipsSubKeys(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	first := draftElection()
	second := draftElection()
	second.Title = "Department Rep"
	require.NoError(t, s.Create(ctx, first))
	require.NoError(t, s.Create(ctx, second))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestListActive(t *testing.T) {
	ctx := context.Background()
	s := newStoreForTests(t)

	running := draftElection()
	require.NoError(t, s.Create(ctx, running))
	_, err := s.Start(ctx, running.ID)
	require.NoError(t, err)

	dormant := draftElection()
	require.NoError(t, s.Create(ctx, dormant))

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, running.ID, active[0].ID)
}
