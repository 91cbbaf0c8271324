package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-service/internal/domain"
)

const questionColumns = `q.id, q.category, q.category_comment, q.prompt, q.answer, q.value, q.non_text, q.show_number, q.show_year`

// Store implements app.Store on Postgres. The schema comes from the migrations package.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanQuestion(row pgx.Row, extra ...any) (domain.Question, error) {
	var q domain.Question
	dest := []any{&q.ID, &q.Category, &q.CategoryComment, &q.Prompt, &q.Answer, &q.Value, &q.NonText, &q.ShowNumber, &q.ShowYear}
	err := row.Scan(append(dest, extra...)...)
	return q, err
}

// AddQuestions inserts questions in one transaction. Rows with an id replace the stored row.
func (s *Store) AddQuestions(ctx context.Context, questions []domain.Question) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

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
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM question WHERE show_number = $1)`, q.ShowNumber).Scan(&exists); err != nil {
			return 0, fmt.Errorf("check show %d: %w", q.ShowNumber, err)
		}
		if exists {
			return 0, fmt.Errorf("show %d: %w", q.ShowNumber, domain.ErrDuplicateShow)
		}
	}

	explicitIDs := false
	for _, q := range questions {
		if q.ID == 0 {
			_, err = tx.Exec(ctx, `
				INSERT INTO question (category, category_comment, prompt, answer, value, non_text, show_number, show_year)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				q.Category, q.CategoryComment, q.Prompt, q.Answer, q.Value, q.NonText, q.ShowNumber, q.ShowYear)
		} else {
			explicitIDs = true
			_, err = tx.Exec(ctx, `
				INSERT INTO question (id, category, category_comment, prompt, answer, value, non_text, show_number, show_year)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (id) DO UPDATE SET
					category = EXCLUDED.category,
					category_comment = EXCLUDED.category_comment,
					prompt = EXCLUDED.prompt,
					answer = EXCLUDED.answer,
					value = EXCLUDED.value,
					non_text = EXCLUDED.non_text,
					show_number = EXCLUDED.show_number,
					show_year = EXCLUDED.show_year`,
				q.ID, q.Category, q.CategoryComment, q.Prompt, q.Answer, q.Value, q.NonText, q.ShowNumber, q.ShowYear)
		}
		if err != nil {
			return 0, fmt.Errorf("insert question: %w", err)
		}
	}
	if explicitIDs {
		// keep the serial ahead of imported ids
		if _, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence('question', 'id'), (SELECT MAX(id) FROM question))`); err != nil {
			return 0, fmt.Errorf("advance question sequence: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(questions), nil
}

func (s *Store) DrawQuestion(ctx context.Context) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM question q ORDER BY random() LIMIT 1`)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrNoQuestions
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("draw question: %w", err)
	}
	return q, nil
}

func (s *Store) LastOpenRound(ctx context.Context) (*domain.Round, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+questionColumns+`, r.started_at
		FROM question_round r
		JOIN question q ON q.id = r.question_id
		WHERE r.completed_at IS NULL
		ORDER BY r.id DESC
		LIMIT 1`)
	var startedAt time.Time
	q, err := scanQuestion(row, &startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("last open round: %w", err)
	}
	return domain.NewRound(q, startedAt), true, nil
}

func (s *Store) CreateRound(ctx context.Context, questionID int64, startedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO question_round (question_id, started_at) VALUES ($1, $2)`, questionID, startedAt)
	if err != nil {
		return fmt.Errorf("create round for question %d: %w", questionID, err)
	}
	return nil
}

func (s *Store) CompleteRound(ctx context.Context, winnerID *int64, completedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE question_round SET winner_id = $1, completed_at = $2
		WHERE id = (SELECT MAX(id) FROM question_round WHERE completed_at IS NULL)`,
		winnerID, completedAt)
	if err != nil {
		return fmt.Errorf("complete round: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoOpenRound
	}
	return nil
}

func (s *Store) RecordAttempts(ctx context.Context, uid, platform string, attempts int, correct bool) error {
	won := 0
	if correct {
		won = 1
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO player (uid, platform, attempts, correct) VALUES ($1, $2, $3, $4)
		ON CONFLICT (uid, platform) DO UPDATE SET
			attempts = player.attempts + EXCLUDED.attempts,
			correct = player.correct + EXCLUDED.correct`,
		uid, platform, attempts, won)
	if err != nil {
		return fmt.Errorf("record attempts for %s: %w", uid, err)
	}
	return nil
}

func (s *Store) PlayerID(ctx context.Context, uid, platform string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM player WHERE uid = $1 AND platform = $2`, uid, platform).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrPlayerNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("player id for %s: %w", uid, err)
	}
	return id, nil
}

func (s *Store) AggregateScores(ctx context.Context, query domain.ScoreQuery) ([]domain.PlayerScore, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT p.uid, SUM(q.value)::INTEGER AS score, COUNT(*)::INTEGER AS correct
		FROM question_round r
		JOIN question q ON q.id = r.question_id
		JOIN player p ON p.id = r.winner_id
		WHERE r.completed_at >= $1`)
	args := []any{query.Start}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if query.End != nil {
		sb.WriteString(` AND r.completed_at < ` + arg(*query.End))
	}
	if query.Platform != "" {
		sb.WriteString(` AND p.platform = ` + arg(query.Platform))
	}
	if query.UID != "" {
		sb.WriteString(` AND p.uid = ` + arg(query.UID))
	}
	sb.WriteString(` GROUP BY p.id, p.uid ORDER BY score DESC, MIN(r.id) ASC`)
	if query.Limit > 0 {
		sb.WriteString(` LIMIT ` + arg(query.Limit))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
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
