package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"trivia-service/internal/config"
	"trivia-service/internal/domain"
)

const corpus = `
questions:
  - category: CAPITALS
    prompt: This city on the Seine is the capital of France
    answer: Paris
    value: 400
    show_number: 4680
    show_year: 2004
  - category: CAPITALS
    prompt: An image clue with no answer text
    answer: ""
    value: 800
    non_text: true
    show_number: 4680
  - category: RIVERS
    category_comment: "(Alex: They're all in Europe.)"
    prompt: It flows through Vienna and Budapest
    answer: the Danube
    value: 600
    show_number: 4681
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadQuestionsSkipsEmptyAnswers(t *testing.T) {
	questions, err := loadQuestions(context.Background(), writeFile(t, "questions.yaml", corpus))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[1].CategoryComment != "(Alex: They're all in Europe.)" || questions[0].ShowYear != 2004 {
		t.Fatalf("unexpected questions %+v", questions)
	}
}

func TestImportIntoSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{}
	cfg.Store.Driver = config.DriverSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "trivia.db")

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()

	path := writeFile(t, "questions.yaml", corpus)
	n, err := importQuestions(ctx, store, path)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 imported, got %d (%v)", n, err)
	}

	q, err := store.DrawQuestion(ctx)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if q.Answer != "Paris" && q.Answer != "the Danube" {
		t.Fatalf("unexpected question %+v", q)
	}

	// Importing the same shows twice is rejected.
	if _, err := importQuestions(ctx, store, path); !errors.Is(err, domain.ErrDuplicateShow) {
		t.Fatalf("expected ErrDuplicateShow, got %v", err)
	}
}

func TestScheduleEntries(t *testing.T) {
	one := 1
	cfg := config.Config{}
	cfg.Trivia.ScoreboardSchedule = []config.Schedule{{Time: "0 9 * * *", DaysAgo: &one}, {Time: "@weekly"}}

	entries := scheduleEntries(cfg)
	if len(entries) != 2 || entries[0].Spec != "0 9 * * *" || *entries[0].DaysAgo != 1 || entries[1].DaysAgo != nil {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestUnknownStoreDriver(t *testing.T) {
	cfg := config.Config{}
	cfg.Store.Driver = "mongo"
	if _, _, err := openStore(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
