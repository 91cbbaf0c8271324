package app

import (
	"context"
	"time"

	"trivia-service/internal/domain"
)

// Store is everything the engine needs from durable storage.
// Implementations must allow AggregateScores to run concurrently with writes.
type Store interface {
	DrawQuestion(ctx context.Context) (domain.Question, error)
	// LastOpenRound returns the most recent round that was never completed.
	LastOpenRound(ctx context.Context) (*domain.Round, bool, error)
	CreateRound(ctx context.Context, questionID int64, startedAt time.Time) error
	// CompleteRound closes the open round; winnerID is nil when nobody won.
	CompleteRound(ctx context.Context, winnerID *int64, completedAt time.Time) error
	// RecordAttempts creates the player on first use and adds to its aggregates.
	RecordAttempts(ctx context.Context, uid, platform string, attempts int, correct bool) error
	PlayerID(ctx context.Context, uid, platform string) (int64, error)
	// AggregateScores sums won question values per player, ordered by score descending.
	AggregateScores(ctx context.Context, query domain.ScoreQuery) ([]domain.PlayerScore, error)
}

// QuestionImporter loads corpus rows into a store.
type QuestionImporter interface {
	AddQuestions(ctx context.Context, questions []domain.Question) (int, error)
}
