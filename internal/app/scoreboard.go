package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"trivia-service/internal/domain"
)

const (
	alltimeTitle  = "Alltime Scores"
	maxNameLength = 32
	titleLayout   = "Monday January 02 2006"
)

// ScoreWindowFor returns the scoreboard window daysAgo local days before now.
// A nil daysAgo selects all time.
func ScoreWindowFor(now time.Time, daysAgo *int) domain.ScoreWindow {
	if daysAgo == nil {
		return domain.ScoreWindow{Title: alltimeTitle, Start: time.Unix(0, 0)}
	}
	start := midnight(now, *daysAgo)
	end := midnight(now, *daysAgo-1)
	return domain.ScoreWindow{
		Title: "Scoreboard for " + start.Format(titleLayout),
		Start: start,
		End:   &end,
	}
}

// midnight is the start of the local day daysAgo days before t.
func midnight(t time.Time, daysAgo int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-daysAgo, 0, 0, 0, 0, t.Location())
}

// Scoreboard ranks every player with a score inside window. Ranks start at 1.
func (e *Engine) Scoreboard(ctx context.Context, window domain.ScoreWindow) ([]domain.ScoreEntry, error) {
	scores, err := e.store.AggregateScores(ctx, domain.ScoreQuery{
		Platform: e.opts.Platform,
		Start:    window.Start,
		End:      window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate scores: %w", err)
	}

	entries := make([]domain.ScoreEntry, 0, len(scores))
	for i, s := range scores {
		entries = append(entries, domain.ScoreEntry{
			Rank:    i + 1,
			Name:    truncate(e.handlers.DisplayName(s.UID), maxNameLength),
			Score:   s.Score,
			Correct: s.Correct,
		})
	}
	return entries, nil
}

// PublishScores renders the scoreboard for daysAgo and replies to payload, or posts
// a message when payload is nil. It never takes the round lock.
func (e *Engine) PublishScores(ctx context.Context, daysAgo *int, suppressIfEmpty bool, payload any) error {
	window := ScoreWindowFor(e.opts.Now().In(e.opts.Location), daysAgo)
	entries, err := e.Scoreboard(ctx, window)
	if err != nil {
		return err
	}
	if suppressIfEmpty && len(entries) == 0 {
		e.logger.Debugw("scoreboard suppressed", "title", window.Title)
		return nil
	}

	text := e.handlers.PreFormat(RenderScoreboard(window.Title, entries))
	if payload != nil {
		e.handlers.PostReply(text, payload)
	} else {
		e.handlers.PostMessage(text)
	}
	return nil
}

// RenderScoreboard draws the underlined title followed by an aligned table.
func RenderScoreboard(title string, entries []domain.ScoreEntry) string {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", utf8.RuneCountInString(title)))
	b.WriteString("\n")

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "rank\tname\tscore\tcorrect")
	fmt.Fprintln(w, "----\t----\t-----\t-------")
	for _, entry := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", entry.Rank, entry.Name, p.Sprintf("%d", entry.Score), entry.Correct)
	}
	_ = w.Flush()

	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
