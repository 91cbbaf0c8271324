package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"trivia-service/internal/logging"
)

// ScheduleEntry publishes the scoreboard for DaysAgo whenever Spec fires.
// Spec is a standard five-field cron expression or a descriptor such as @daily.
type ScheduleEntry struct {
	Spec    string
	DaysAgo *int
}

// ScorePublisher is the part of the engine the scheduler drives.
type ScorePublisher interface {
	PublishScores(ctx context.Context, daysAgo *int, suppressIfEmpty bool, payload any) error
}

// Scheduler publishes scoreboards on a timetable. Every fire runs on its own
// goroutine and only reads aggregate scores, so it never waits on live rounds.
type Scheduler struct {
	cron      *cron.Cron
	publisher ScorePublisher
	logger    *zap.SugaredLogger
	ctx       context.Context
}

func NewScheduler(ctx context.Context, publisher ScorePublisher, entries []ScheduleEntry, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := logging.FromContext(ctx).Named("scheduler")
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Desugar()))

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		publisher: publisher,
		logger:    logger,
		ctx:       ctx,
	}

	for _, entry := range entries {
		if _, err := s.cron.AddFunc(entry.Spec, s.job(entry)); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", entry.Spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) job(entry ScheduleEntry) func() {
	return func() {
		if err := s.publisher.PublishScores(s.ctx, entry.DaysAgo, true, nil); err != nil {
			s.logger.Errorw("scheduled scoreboard failed", "spec", entry.Spec, "error", err)
		}
	}
}

// Len is the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the timetable; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
