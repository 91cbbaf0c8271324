package app

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type commandFunc func(ctx context.Context, uid string, payload any) error

// command is one row of the dispatch table. Rows without help are hidden from !help.
type command struct {
	aliases []string
	help    string
	run     commandFunc
}

func (e *Engine) commandTable() []command {
	yesterday, today := 1, 0
	return []command{
		{aliases: []string{"exit"}, run: e.commandExit},
		{aliases: []string{"uptime"}, run: e.commandUptime},
		{
			aliases: []string{"new", "trivia new"},
			help:    "Skip to the next question",
			run: func(ctx context.Context, _ string, _ any) error {
				return e.completeRound(ctx, "")
			},
		},
		{
			aliases: []string{"alltime", "score", "scores"},
			help:    "Scores for all time",
			run: func(ctx context.Context, _ string, payload any) error {
				return e.PublishScores(ctx, nil, false, payload)
			},
		},
		{
			aliases: []string{"yesterday"},
			help:    "Scores for yesterday",
			run: func(ctx context.Context, _ string, payload any) error {
				return e.PublishScores(ctx, &yesterday, false, payload)
			},
		},
		{
			aliases: []string{"today"},
			help:    "Scores for today",
			run: func(ctx context.Context, _ string, payload any) error {
				return e.PublishScores(ctx, &today, false, payload)
			},
		},
		{aliases: []string{"help"}, help: "Show this help info", run: e.commandHelp},
	}
}

// dispatch runs the first command owning an alias equal to text. Unknown text is ignored.
func (e *Engine) dispatch(ctx context.Context, uid, text string, payload any) error {
	for _, cmd := range e.commands {
		for _, alias := range cmd.aliases {
			if text == alias {
				return cmd.run(ctx, uid, payload)
			}
		}
	}
	return nil
}

func (e *Engine) commandExit(_ context.Context, uid string, payload any) error {
	if e.opts.AdminUID == "" || uid != e.opts.AdminUID {
		e.logger.Warnw("exit refused", "uid", uid)
		return nil
	}
	e.handlers.PostReply("ok bye", payload)
	e.logger.Infow("exit requested", "uid", uid)
	e.handlers.Exit()
	return nil
}

func (e *Engine) commandUptime(_ context.Context, _ string, payload any) error {
	e.handlers.PostReply(FormatUptime(e.Uptime()), payload)
	return nil
}

func (e *Engine) commandHelp(_ context.Context, _ string, payload any) error {
	lines := make([]string, 0, len(e.commands))
	for _, cmd := range e.commands {
		if cmd.help == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s%-20s%s", CommandPrefix, cmd.aliases[0], cmd.help))
	}
	e.handlers.PostReply(e.handlers.PreFormat(strings.Join(lines, "\n")), payload)
	return nil
}

// FormatUptime renders d as HH:MM:SS. Hours keep growing past 99 (e.g. 100:00:00).
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
