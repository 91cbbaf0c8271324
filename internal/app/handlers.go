package app

import (
	"os"
	"syscall"

	"trivia-service/internal/domain"
)

// Handlers are the outbound capabilities of the host chat surface.
// They are fixed when the engine is built; nil fields fall back to:
//   - PostQuestion, PostMessage, PostReply: no-op
//   - PreFormat: identity
//   - DisplayName: the uid itself
//   - Exit: SIGTERM to the current process
type Handlers struct {
	PostQuestion func(post domain.QuestionPost)
	PostMessage  func(text string)
	// PostReply answers the message identified by payload.
	PostReply   func(text string, payload any)
	PreFormat   func(text string) string
	DisplayName func(uid string) string
	Exit        func()
}

func (h Handlers) withDefaults() Handlers {
	if h.PostQuestion == nil {
		h.PostQuestion = func(domain.QuestionPost) {}
	}
	if h.PostMessage == nil {
		h.PostMessage = func(string) {}
	}
	if h.PostReply == nil {
		h.PostReply = func(string, any) {}
	}
	if h.PreFormat == nil {
		h.PreFormat = func(text string) string { return text }
	}
	if h.DisplayName == nil {
		h.DisplayName = func(uid string) string { return uid }
	}
	if h.Exit == nil {
		h.Exit = terminateSelf
	}
	return h
}

func terminateSelf() {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		os.Exit(0)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		os.Exit(0)
	}
}
