package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

type playerKey struct {
	uid      string
	platform string
}

type roundRecord struct {
	questionID  int64
	startedAt   time.Time
	completedAt *time.Time
	winnerID    *int64
}

// Store is an in-memory implementation of app.Store (useful for tests/demos).
type Store struct {
	mu  sync.RWMutex
	rnd *rand.Rand

	questions      map[int64]domain.Question
	questionIDs    []int64
	nextQuestionID int64
	shows          map[int]struct{}

	players      map[playerKey]*domain.Player
	playersByID  map[int64]*domain.Player
	nextPlayerID int64

	rounds []roundRecord
}

func NewStore(questions ...domain.Question) *Store {
	s := &Store{
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		questions:   make(map[int64]domain.Question),
		shows:       make(map[int]struct{}),
		players:     make(map[playerKey]*domain.Player),
		playersByID: make(map[int64]*domain.Player),
	}
	if len(questions) > 0 {
		if _, err := s.AddQuestions(context.Background(), questions); err != nil {
			panic(err)
		}
	}
	return s
}

// AddQuestions stores questions, assigning ids to rows that have none.
func (s *Store) AddQuestions(_ context.Context, questions []domain.Question) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range questions {
		if q.Answer == "" {
			return 0, fmt.Errorf("question %d: %w", q.ID, domain.ErrEmptyAnswer)
		}
		if _, ok := s.shows[q.ShowNumber]; ok && q.ShowNumber != 0 {
			return 0, fmt.Errorf("show %d: %w", q.ShowNumber, domain.ErrDuplicateShow)
		}
	}

	added := make(map[int]struct{})
	for _, q := range questions {
		if q.ID == 0 {
			s.nextQuestionID++
			q.ID = s.nextQuestionID
		} else if q.ID > s.nextQuestionID {
			s.nextQuestionID = q.ID
		}
		if _, ok := s.questions[q.ID]; !ok {
			s.questionIDs = append(s.questionIDs, q.ID)
		}
		s.questions[q.ID] = q
		if q.ShowNumber != 0 {
			added[q.ShowNumber] = struct{}{}
		}
	}
	for show := range added {
		s.shows[show] = struct{}{}
	}
	return len(questions), nil
}

func (s *Store) DrawQuestion(_ context.Context) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.questionIDs) == 0 {
		return domain.Question{}, domain.ErrNoQuestions
	}
	id := s.questionIDs[s.rnd.Intn(len(s.questionIDs))]
	return s.questions[id], nil
}

func (s *Store) LastOpenRound(_ context.Context) (*domain.Round, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.rounds) - 1; i >= 0; i-- {
		r := s.rounds[i]
		if r.completedAt != nil {
			continue
		}
		q, ok := s.questions[r.questionID]
		if !ok {
			return nil, false, fmt.Errorf("round question %d: %w", r.questionID, domain.ErrNoQuestions)
		}
		return domain.NewRound(q, r.startedAt), true, nil
	}
	return nil, false, nil
}

func (s *Store) CreateRound(_ context.Context, questionID int64, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[questionID]; !ok {
		return fmt.Errorf("question %d: %w", questionID, domain.ErrNoQuestions)
	}
	s.rounds = append(s.rounds, roundRecord{questionID: questionID, startedAt: startedAt})
	return nil
}

func (s *Store) CompleteRound(_ context.Context, winnerID *int64, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.rounds) - 1; i >= 0; i-- {
		if s.rounds[i].completedAt != nil {
			continue
		}
		at := completedAt
		s.rounds[i].completedAt = &at
		s.rounds[i].winnerID = winnerID
		return nil
	}
	return domain.ErrNoOpenRound
}

func (s *Store) RecordAttempts(_ context.Context, uid, platform string, attempts int, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := playerKey{uid: uid, platform: platform}
	p, ok := s.players[key]
	if !ok {
		s.nextPlayerID++
		p = &domain.Player{ID: s.nextPlayerID, UID: uid, Platform: platform}
		s.players[key] = p
		s.playersByID[p.ID] = p
	}
	p.Attempts += attempts
	if correct {
		p.Correct++
	}
	return nil
}

func (s *Store) PlayerID(_ context.Context, uid, platform string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[playerKey{uid: uid, platform: platform}]
	if !ok {
		return 0, domain.ErrPlayerNotFound
	}
	return p.ID, nil
}

// Player returns a copy of the stored player aggregate.
func (s *Store) Player(uid, platform string) (domain.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[playerKey{uid: uid, platform: platform}]
	if !ok {
		return domain.Player{}, false
	}
	return *p, true
}

// RoundCount is the number of rounds ever created.
func (s *Store) RoundCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rounds)
}

func (s *Store) AggregateScores(_ context.Context, query domain.ScoreQuery) ([]domain.PlayerScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPlayer := make(map[int64]*domain.PlayerScore)
	var order []int64
	for _, r := range s.rounds {
		if r.completedAt == nil || r.winnerID == nil {
			continue
		}
		if r.completedAt.Before(query.Start) || (query.End != nil && !r.completedAt.Before(*query.End)) {
			continue
		}
		p := s.playersByID[*r.winnerID]
		if p == nil {
			continue
		}
		if query.Platform != "" && p.Platform != query.Platform {
			continue
		}
		if query.UID != "" && p.UID != query.UID {
			continue
		}
		score, ok := byPlayer[p.ID]
		if !ok {
			score = &domain.PlayerScore{UID: p.UID}
			byPlayer[p.ID] = score
			order = append(order, p.ID)
		}
		score.Score += s.questions[r.questionID].Value
		score.Correct++
	}

	scores := make([]domain.PlayerScore, 0, len(order))
	for _, id := range order {
		scores = append(scores, *byPlayer[id])
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	if query.Limit > 0 && len(scores) > query.Limit {
		scores = scores[:query.Limit]
	}
	return scores, nil
}
