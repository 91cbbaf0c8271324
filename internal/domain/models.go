package domain

import "time"

// Question is a single trivia clue drawn from the corpus. It is never mutated once drawn.
type Question struct {
	ID              int64  `json:"id" yaml:"id"`
	Category        string `json:"category" yaml:"category"`
	CategoryComment string `json:"categoryComment,omitempty" yaml:"category_comment"`
	Prompt          string `json:"prompt" yaml:"prompt"`
	Answer          string `json:"answer" yaml:"answer"`
	Value           int    `json:"value" yaml:"value"`
	// NonText marks prompts that embed a link or image and need different presentation.
	NonText    bool `json:"nonText" yaml:"non_text"`
	ShowNumber int  `json:"showNumber,omitempty" yaml:"show_number"`
	ShowYear   int  `json:"showYear,omitempty" yaml:"show_year"`
}

// Round is the live period during which one Question accepts attempts.
type Round struct {
	Question  Question
	StartedAt time.Time
	// attempts keeps every attempting uid in arrival order, duplicates included.
	attempts []string
}

// NewRound opens a round for q.
func NewRound(q Question, startedAt time.Time) *Round {
	return &Round{Question: q, StartedAt: startedAt}
}

// AddAttempt records one attempt by uid.
func (r *Round) AddAttempt(uid string) {
	r.attempts = append(r.attempts, uid)
}

// AttemptCount is the raw number of attempts in the round.
func (r *Round) AttemptCount() int {
	return len(r.attempts)
}

// Attempts aggregates the attempt list per distinct uid, in first-seen order.
func (r *Round) Attempts() []AttemptTally {
	index := make(map[string]int, len(r.attempts))
	tallies := make([]AttemptTally, 0, len(r.attempts))
	for _, uid := range r.attempts {
		if i, ok := index[uid]; ok {
			tallies[i].Count++
			continue
		}
		index[uid] = len(tallies)
		tallies = append(tallies, AttemptTally{UID: uid, Count: 1})
	}
	return tallies
}

// AttemptTally is the number of attempts a single user made in a round.
type AttemptTally struct {
	UID   string
	Count int
}

// Attempt is one submitted answer; it only lives for the duration of a message.
type Attempt struct {
	UID  string
	Text string
}

// Player is the durable aggregate of a user's play on one platform.
type Player struct {
	ID       int64
	UID      string
	Platform string
	Attempts int
	Correct  int
}

// PlayerScore is the per-player aggregate over a score window.
type PlayerScore struct {
	UID     string `json:"uid"`
	Score   int    `json:"score"`
	Correct int    `json:"correct"`
}

// ScoreQuery selects aggregated scores over the half-open window [Start, End).
// A nil End leaves the window open; an empty UID selects every player.
type ScoreQuery struct {
	UID      string
	Platform string
	Start    time.Time
	End      *time.Time
	Limit    int
}

// ScoreEntry is one ranked scoreboard row. Rank starts at 1.
type ScoreEntry struct {
	Rank    int    `json:"rank"`
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Correct int    `json:"correct"`
}

// ScoreWindow is the time range and title of a scoreboard.
type ScoreWindow struct {
	Title string
	Start time.Time
	End   *time.Time
}

// WinnerStats is the ad-hoc mini scoreboard of the last winner since local midnight.
type WinnerStats struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Correct int    `json:"correct"`
}

// QuestionPost is published whenever a new round opens.
type QuestionPost struct {
	Question      Question     `json:"question"`
	WinningUser   *WinnerStats `json:"winningUser,omitempty"`
	WinningAnswer string       `json:"winningAnswer,omitempty"`
}
