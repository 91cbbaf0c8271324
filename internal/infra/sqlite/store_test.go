package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-service/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "trivia.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	n, err := s.AddQuestions(context.Background(), []domain.Question{
		{ID: 1, Category: "CAPITALS", Prompt: "Capital of France", Answer: "Paris", Value: 400, ShowNumber: 4680},
		{ID: 2, Category: "CAPITALS", Prompt: "Capital of Germany", Answer: "Berlin", Value: 600, ShowNumber: 4680},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestRoundLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s)

	_, ok, err := s.LastOpenRound(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	started := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateRound(ctx, 1, started))

	round, ok, err := s.LastOpenRound(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Paris", round.Question.Answer)
	assert.True(t, round.StartedAt.Equal(started))

	require.NoError(t, s.RecordAttempts(ctx, "alice", "ws", 3, true))
	require.NoError(t, s.RecordAttempts(ctx, "bob", "ws", 1, false))
	require.NoError(t, s.RecordAttempts(ctx, "alice", "ws", 2, false))

	alice, err := s.Player(ctx, "alice", "ws")
	require.NoError(t, err)
	assert.Equal(t, 5, alice.Attempts)
	assert.Equal(t, 1, alice.Correct)

	id, err := s.PlayerID(ctx, "alice", "ws")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRound(ctx, &id, started.Add(time.Minute)))

	_, ok, err = s.LastOpenRound(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.CompleteRound(ctx, nil, started), domain.ErrNoOpenRound)

	_, err = s.PlayerID(ctx, "carol", "ws")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestAggregateScores(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s)

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	win := func(questionID int64, uid, platform string, at time.Time) {
		require.NoError(t, s.CreateRound(ctx, questionID, at.Add(-time.Minute)))
		require.NoError(t, s.RecordAttempts(ctx, uid, platform, 1, true))
		id, err := s.PlayerID(ctx, uid, platform)
		require.NoError(t, err)
		require.NoError(t, s.CompleteRound(ctx, &id, at))
	}
	win(1, "alice", "ws", day.Add(-time.Hour))
	win(1, "bob", "ws", day.Add(time.Hour))
	win(2, "alice", "ws", day.Add(2*time.Hour))
	win(2, "carol", "slack", day.Add(3*time.Hour))

	// skipped round
	require.NoError(t, s.CreateRound(ctx, 1, day.Add(4*time.Hour)))
	require.NoError(t, s.CompleteRound(ctx, nil, day.Add(5*time.Hour)))

	all, err := s.AggregateScores(ctx, domain.ScoreQuery{Platform: "ws", Start: time.Unix(0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []domain.PlayerScore{
		{UID: "alice", Score: 1000, Correct: 2},
		{UID: "bob", Score: 400, Correct: 1},
	}, all)

	end := day.Add(24 * time.Hour)
	today, err := s.AggregateScores(ctx, domain.ScoreQuery{Platform: "ws", Start: day, End: &end})
	require.NoError(t, err)
	assert.Equal(t, []domain.PlayerScore{
		{UID: "alice", Score: 600, Correct: 1},
		{UID: "bob", Score: 400, Correct: 1},
	}, today)

	one, err := s.AggregateScores(ctx, domain.ScoreQuery{UID: "bob", Platform: "ws", Start: day, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []domain.PlayerScore{{UID: "bob", Score: 400, Correct: 1}}, one)

	none, err := s.AggregateScores(ctx, domain.ScoreQuery{Platform: "ws", Start: end})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAggregateScoresDuringWrite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s)

	tx, err := s.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `INSERT INTO player (uid, platform) VALUES ('dave', 'ws')`)
	require.NoError(t, err)

	// The only writer connection is held by tx.
	done := make(chan error, 1)
	go func() {
		_, err := s.AggregateScores(ctx, domain.ScoreQuery{Start: time.Unix(0, 0)})
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scoreboard read waited on the open write transaction")
	}
}

func TestAddQuestionsValidation(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s)

	_, err := s.AddQuestions(ctx, []domain.Question{{Prompt: "blank", Answer: ""}})
	assert.ErrorIs(t, err, domain.ErrEmptyAnswer)

	_, err = s.AddQuestions(ctx, []domain.Question{{Prompt: "again", Answer: "x", ShowNumber: 4680}})
	assert.ErrorIs(t, err, domain.ErrDuplicateShow)

	n, err := s.AddQuestions(ctx, []domain.Question{{Prompt: "new", Answer: "Rome", Value: 200, ShowNumber: 5000}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDrawQuestion(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.DrawQuestion(ctx)
	assert.ErrorIs(t, err, domain.ErrNoQuestions)

	seed(t, s)
	q, err := s.DrawQuestion(ctx)
	require.NoError(t, err)
	assert.Contains(t, []string{"Paris", "Berlin"}, q.Answer)
}
