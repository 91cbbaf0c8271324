package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trivia-service/internal/domain"
)

// Timestamps are stored as unix nanoseconds so range filters compare numerically.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS question (
		id               INTEGER PRIMARY KEY,
		category         TEXT    NOT NULL DEFAULT '',
		category_comment TEXT    NOT NULL DEFAULT '',
		prompt           TEXT    NOT NULL,
		answer           TEXT    NOT NULL CHECK (answer <> ''),
		value            INTEGER NOT NULL DEFAULT 0,
		non_text         INTEGER NOT NULL DEFAULT 0,
		show_number      INTEGER NOT NULL DEFAULT 0,
		show_year        INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS question_show_number_idx ON question (show_number)`,
	`CREATE TABLE IF NOT EXISTS player (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		uid      TEXT    NOT NULL,
		platform TEXT    NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		correct  INTEGER NOT NULL DEFAULT 0,
		UNIQUE (uid, platform)
	)`,
	`CREATE TABLE IF NOT EXISTS question_round (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id  INTEGER NOT NULL REFERENCES question (id),
		winner_id    INTEGER REFERENCES player (id),
		started_at   INTEGER NOT NULL,
		completed_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS question_round_completed_at_idx ON question_round (completed_at)`,
}

const questionColumns = `q.id, q.category, q.category_comment, q.prompt, q.answer, q.value, q.non_text, q.show_number, q.show_year`

// Store implements app.Store on a single SQLite file.
// Writes go through db; AggregateScores reads through reader so scoreboard
// queries run beside an in-flight write under WAL.
type Store struct {
	db     *sql.DB
	reader *sql.DB
}

const readerConns = 4

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}

	// WAL is a property of the file, so the read-only pool inherits it.
	reader, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite reader %s: %w", path, err)
	}
	reader.SetMaxOpenConns(readerConns)
	if err := reader.PingContext(ctx); err != nil {
		reader.Close()
		db.Close()
		return nil, fmt.Errorf("ping sqlite reader %s: %w", path, err)
	}
	return &Store{db: db, reader: reader}, nil
}

func (s *Store) Close() error {
	return errors.Join(s.reader.Close(), s.db.Close())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner, extra ...any) (domain.Question, error) {
	var q domain.Question
	dest := []any{&q.ID, &q.Category, &q.CategoryComment, &q.Prompt, &q.Answer, &q.Value, &q.NonText, &q.ShowNumber, &q.ShowYear}
	err := row.Scan(append(dest, extra...)...)
	return q, err
}

// AddQuestions inserts questions in one transaction. Rows with an id replace the stored row.
func (s *Store) AddQuestions(ctx context.Context, questions []domain.Question) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	checked := make(map[int]struct{})
	for _, q := range questions {
		if q.Answer == "" {
			return 0, fmt.Errorf("question %d: %w", q.ID, domain.ErrEmptyAnswer)
		}
		if q.ShowNumber == 0 {
			continue
		}
		if _, ok := checked[q.ShowNumber]; ok {
			continue
		}
		checked[q.ShowNumber] = struct{}{}
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM question WHERE show_number = ? LIMIT 1`, q.ShowNumber).Scan(&exists)
		if err == nil {
			return 0, fmt.Errorf("show %d: %w", q.ShowNumber, domain.ErrDuplicateShow)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("check show %d: %w", q.ShowNumber, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question (id, category, category_comment, prompt, answer, value, non_text, show_number, show_year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			category = excluded.category,
			category_comment = excluded.category_comment,
			prompt = excluded.prompt,
			answer = excluded.answer,
			value = excluded.value,
			non_text = excluded.non_text,
			show_number = excluded.show_number,
			show_year = excluded.show_year`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, q := range questions {
		var id any
		if q.ID != 0 {
			id = q.ID
		}
		if _, err := stmt.ExecContext(ctx, id, q.Category, q.CategoryComment, q.Prompt, q.Answer, q.Value, q.NonText, q.ShowNumber, q.ShowYear); err != nil {
			return 0, fmt.Errorf("insert question: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(questions), nil
}

func (s *Store) DrawQuestion(ctx context.Context) (domain.Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM question q ORDER BY RANDOM() LIMIT 1`)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrNoQuestions
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("draw question: %w", err)
	}
	return q, nil
}

func (s *Store) LastOpenRound(ctx context.Context) (*domain.Round, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+questionColumns+`, r.started_at
		FROM question_round r
		JOIN question q ON q.id = r.question_id
		WHERE r.completed_at IS NULL
		ORDER BY r.id DESC
		LIMIT 1`)
	var startedAt int64
	q, err := scanQuestion(row, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("last open round: %w", err)
	}
	return domain.NewRound(q, time.Unix(0, startedAt)), true, nil
}

func (s *Store) CreateRound(ctx context.Context, questionID int64, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO question_round (question_id, started_at) VALUES (?, ?)`,
		questionID, startedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("create round for question %d: %w", questionID, err)
	}
	return nil
}

func (s *Store) CompleteRound(ctx context.Context, winnerID *int64, completedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE question_round SET winner_id = ?, completed_at = ?
		WHERE id = (SELECT MAX(id) FROM question_round WHERE completed_at IS NULL)`,
		winnerID, completedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("complete round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNoOpenRound
	}
	return nil
}

func (s *Store) RecordAttempts(ctx context.Context, uid, platform string, attempts int, correct bool) error {
	won := 0
	if correct {
		won = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player (uid, platform, attempts, correct) VALUES (?, ?, ?, ?)
		ON CONFLICT (uid, platform) DO UPDATE SET
			attempts = attempts + excluded.attempts,
			correct = correct + excluded.correct`,
		uid, platform, attempts, won)
	if err != nil {
		return fmt.Errorf("record attempts for %s: %w", uid, err)
	}
	return nil
}

func (s *Store) PlayerID(ctx context.Context, uid, platform string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM player WHERE uid = ? AND platform = ?`, uid, platform).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrPlayerNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("player id for %s: %w", uid, err)
	}
	return id, nil
}

// Player returns the stored aggregate for uid on platform.
func (s *Store) Player(ctx context.Context, uid, platform string) (domain.Player, error) {
	p := domain.Player{UID: uid, Platform: platform}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, attempts, correct FROM player WHERE uid = ? AND platform = ?`, uid, platform).
		Scan(&p.ID, &p.Attempts, &p.Correct)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return p, err
}

func (s *Store) AggregateScores(ctx context.Context, query domain.ScoreQuery) ([]domain.PlayerScore, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT p.uid, SUM(q.value) AS score, COUNT(*) AS correct
		FROM question_round r
		JOIN question q ON q.id = r.question_id
		JOIN player p ON p.id = r.winner_id
		WHERE r.completed_at >= ?`)
	args := []any{query.Start.UnixNano()}
	if query.End != nil {
		sb.WriteString(` AND r.completed_at < ?`)
		args = append(args, query.End.UnixNano())
	}
	if query.Platform != "" {
		sb.WriteString(` AND p.platform = ?`)
		args = append(args, query.Platform)
	}
	if query.UID != "" {
		sb.WriteString(` AND p.uid = ?`)
		args = append(args, query.UID)
	}
	sb.WriteString(` GROUP BY p.id, p.uid ORDER BY score DESC, MIN(r.id) ASC`)
	if query.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, query.Limit)
	}

	rows, err := s.reader.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate scores: %w", err)
	}
	defer rows.Close()

	var scores []domain.PlayerScore
	for rows.Next() {
		var ps domain.PlayerScore
		if err := rows.Scan(&ps.UID, &ps.Score, &ps.Correct); err != nil {
			return nil, err
		}
		scores = append(scores, ps)
	}
	return scores, rows.Err()
}
