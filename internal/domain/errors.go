package domain

import "errors"

var (
	// ErrNoQuestions is returned when the corpus has nothing left to draw.
	ErrNoQuestions = errors.New("no questions available")
	// ErrPlayerNotFound is returned when a player lookup misses.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrEmptyAnswer rejects corpus rows without a canonical answer.
	ErrEmptyAnswer = errors.New("question has no answer")
	// ErrDuplicateShow rejects importing a show that is already stored.
	ErrDuplicateShow = errors.New("show already imported")
	// ErrNoOpenRound is returned when completing a round that was never opened.
	ErrNoOpenRound = errors.New("no open round")
)
