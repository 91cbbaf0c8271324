package app_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

func intPtr(n int) *int { return &n }

func TestScoreWindowFor(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC)

	all := app.ScoreWindowFor(now, nil)
	assert.Equal(t, "Alltime Scores", all.Title)
	assert.Equal(t, time.Unix(0, 0), all.Start)
	assert.Nil(t, all.End)

	today := app.ScoreWindowFor(now, intPtr(0))
	assert.Equal(t, "Scoreboard for Sunday March 10 2024", today.Title)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), today.Start)
	require.NotNil(t, today.End)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), *today.End)

	yesterday := app.ScoreWindowFor(now, intPtr(1))
	assert.Equal(t, "Scoreboard for Saturday March 09 2024", yesterday.Title)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), yesterday.Start)
	assert.Equal(t, today.Start, *yesterday.End)

	// Crossing a month boundary.
	first := app.ScoreWindowFor(time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC), intPtr(1))
	assert.Equal(t, "Scoreboard for Thursday February 29 2024", first.Title)
}

func TestScoreboard_EmptyWindowRepliesButScheduledSuppresses(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	engine := newTestEngine(t, newDeckStore(paris), rec, newClock())
	require.NoError(t, engine.Start(ctx))

	require.NoError(t, engine.HandleMessage(ctx, "A", "!today", "msg-1", nil))
	require.Len(t, rec.replies, 1)
	assert.Contains(t, rec.replies[0].text, "Scoreboard for Sunday March 10 2024")
	assert.Contains(t, rec.replies[0].text, "rank  name  score  correct")

	require.NoError(t, engine.PublishScores(ctx, intPtr(0), true, nil))
	assert.Empty(t, rec.messages)

	require.NoError(t, engine.PublishScores(ctx, intPtr(0), false, nil))
	assert.Len(t, rec.messages, 1)
}

func TestScoreboard_RanksWinners(t *testing.T) {
	ctx := context.Background()
	longUID := strings.Repeat("x", 40)
	rec := &recorder{}
	clock := newClock()
	engine := newTestEngine(t, newDeckStore(paris, paris, berlin, paris), rec, clock)
	require.NoError(t, engine.Start(ctx))

	require.NoError(t, engine.HandleMessage(ctx, longUID, "paris", nil, nil))
	require.NoError(t, engine.HandleMessage(ctx, "B", "paris", nil, nil))
	require.NoError(t, engine.HandleMessage(ctx, "B", "berlin", nil, nil))

	entries, err := engine.Scoreboard(ctx, app.ScoreWindowFor(clock.Now(), nil))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ScoreEntry{Rank: 1, Name: "name-B", Score: 1000, Correct: 2}, entries[0])
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, ("name-" + longUID)[:32], entries[1].Name)

	clock.Advance(24 * time.Hour)
	require.NoError(t, engine.HandleMessage(ctx, "A", "!yesterday", "p", nil))
	require.Len(t, rec.replies, 1)
	assert.Contains(t, rec.replies[0].text, "name-B")

	require.NoError(t, engine.HandleMessage(ctx, "A", "!today", "p", nil))
	require.Len(t, rec.replies, 2)
	assert.NotContains(t, rec.replies[1].text, "name-B")

	require.NoError(t, engine.PublishScores(ctx, intPtr(1), true, nil))
	require.Len(t, rec.messages, 1)
	assert.Contains(t, rec.messages[0], "Scoreboard for Sunday March 10 2024")
}

func TestRenderScoreboard(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	entries := []domain.ScoreEntry{
		{Rank: 1, Name: "alice", Score: 12000, Correct: 5},
		{Rank: 2, Name: "Bob the Builder", Score: 800, Correct: 1},
		{Rank: 3, Name: "carol", Score: 0, Correct: 0},
	}
	g.Assert(t, "alltime_scoreboard", []byte(app.RenderScoreboard("Alltime Scores", entries)))
	g.Assert(t, "empty_daily_scoreboard", []byte(app.RenderScoreboard("Scoreboard for Sunday March 10 2024", nil)))
}
