package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"trivia-service/internal/answer"
	"trivia-service/internal/domain"
	"trivia-service/internal/logging"
)

// CommandPrefix marks a message as a command rather than an answer attempt.
const CommandPrefix = "!"

// Options configures the engine.
type Options struct {
	// AdminUID is the only uid allowed to run !exit.
	AdminUID              string
	MinMatchingCharacters int
	// Platform is stored with every player record.
	Platform string
	// Location decides where local midnight falls for daily scoreboards.
	Location *time.Location
	Now      func() time.Time
}

// Engine runs the trivia rounds. It owns the single current round; every message
// is handled under one engine-wide mutex so the first matching attempt wins.
type Engine struct {
	mu    sync.Mutex
	round *domain.Round

	store     Store
	handlers  Handlers
	matcher   *answer.Matcher
	opts      Options
	startedAt time.Time
	commands  []command
	logger    *zap.SugaredLogger
}

// NewEngine builds an engine and restores the last unanswered round, if any.
// The engine stays idle until Start when nothing was open.
func NewEngine(ctx context.Context, store Store, opts Options, handlers Handlers) (*Engine, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MinMatchingCharacters <= 0 {
		opts.MinMatchingCharacters = answer.DefaultMinChars
	}

	logger := logging.FromContext(ctx).Named("engine")
	e := &Engine{
		store:     store,
		handlers:  handlers.withDefaults(),
		matcher:   answer.NewMatcher(opts.MinMatchingCharacters, logger),
		opts:      opts,
		startedAt: opts.Now(),
		logger:    logger,
	}
	e.commands = e.commandTable()

	round, ok, err := store.LastOpenRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore last open round: %w", err)
	}
	if ok {
		e.round = round
		logger.Infow("restored open round", "questionID", round.Question.ID)
	}
	return e, nil
}

// Start posts the first question when no round is open.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.round != nil {
		return nil
	}
	return e.openRound(ctx, nil, "")
}

// HandleMessage processes one inbound message. Text starting with the command
// prefix is dispatched as a command; anything else is an answer attempt.
// onCorrect, when set, runs before the round is completed for a correct attempt.
func (e *Engine) HandleMessage(ctx context.Context, uid, text string, payload any, onCorrect func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if strings.HasPrefix(text, CommandPrefix) {
		return e.dispatch(ctx, uid, strings.TrimPrefix(text, CommandPrefix), payload)
	}
	return e.attempt(ctx, uid, text, onCorrect)
}

// CheckAnswer reports whether text answers the current question.
func (e *Engine) CheckAnswer(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkAnswerLocked(text)
}

// CurrentQuestion returns the question of the open round.
func (e *Engine) CurrentQuestion() (domain.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.round == nil {
		return domain.Question{}, false
	}
	return e.round.Question, true
}

// Uptime is the wall time elapsed since the engine was built.
func (e *Engine) Uptime() time.Duration {
	return e.opts.Now().Sub(e.startedAt)
}

func (e *Engine) checkAnswerLocked(text string) bool {
	if e.round == nil {
		return false
	}
	return e.matcher.Matches(text, e.round.Question.Answer)
}

func (e *Engine) attempt(ctx context.Context, uid, text string, onCorrect func()) error {
	if e.round == nil {
		e.logger.Debugw("attempt while idle", "uid", uid)
		return nil
	}

	e.round.AddAttempt(uid)
	if !e.checkAnswerLocked(text) {
		return nil
	}

	if onCorrect != nil {
		onCorrect()
	}
	return e.completeRound(ctx, uid)
}

// completeRound credits attempts, closes the round record and opens the next round.
// winner is empty for a skipped round.
//
// The round is detached before anything is written so its attempts are credited at
// most once. If a store call fails the engine is left Idle; Start or !new reopens.
func (e *Engine) completeRound(ctx context.Context, winner string) error {
	prev := e.round
	e.round = nil
	now := e.opts.Now()

	winningAnswer := ""
	if prev != nil {
		winningAnswer = prev.Question.Answer
		for _, tally := range prev.Attempts() {
			if err := e.store.RecordAttempts(ctx, tally.UID, e.opts.Platform, tally.Count, tally.UID == winner); err != nil {
				return fmt.Errorf("record attempts for %s: %w", tally.UID, err)
			}
		}

		var winnerID *int64
		if winner != "" {
			id, err := e.store.PlayerID(ctx, winner, e.opts.Platform)
			if err != nil {
				return fmt.Errorf("winner player id: %w", err)
			}
			winnerID = &id
		}

		e.logger.Infow("round complete", "questionID", prev.Question.ID, "winner", winner, "attempts", prev.AttemptCount())
		if err := e.store.CompleteRound(ctx, winnerID, now); err != nil && !errors.Is(err, domain.ErrNoOpenRound) {
			return fmt.Errorf("complete round: %w", err)
		}
	}

	var stats *domain.WinnerStats
	if winner != "" {
		var err error
		stats, err = e.winnerStats(ctx, winner, now)
		if err != nil {
			return err
		}
	}

	return e.openRound(ctx, stats, winningAnswer)
}

// winnerStats fetches the winner's first aggregate row since local midnight.
func (e *Engine) winnerStats(ctx context.Context, uid string, now time.Time) (*domain.WinnerStats, error) {
	rows, err := e.store.AggregateScores(ctx, domain.ScoreQuery{
		UID:      uid,
		Platform: e.opts.Platform,
		Start:    midnight(now.In(e.opts.Location), 0),
		Limit:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("winner stats: %w", err)
	}
	if len(rows) == 0 {
		e.logger.Warnw("no stats for winner", "uid", uid)
		return nil, nil
	}
	return &domain.WinnerStats{
		UID:     uid,
		Name:    e.handlers.DisplayName(uid),
		Score:   rows[0].Score,
		Correct: rows[0].Correct,
	}, nil
}

func (e *Engine) openRound(ctx context.Context, winner *domain.WinnerStats, winningAnswer string) error {
	q, err := e.store.DrawQuestion(ctx)
	if err != nil {
		return fmt.Errorf("draw question: %w", err)
	}

	startedAt := e.opts.Now()
	if err := e.store.CreateRound(ctx, q.ID, startedAt); err != nil {
		return fmt.Errorf("create round: %w", err)
	}

	e.round = domain.NewRound(q, startedAt)
	e.logger.Infow("new question", "questionID", q.ID)

	e.handlers.PostQuestion(domain.QuestionPost{
		Question:      q,
		WinningUser:   winner,
		WinningAnswer: winningAnswer,
	})
	return nil
}
