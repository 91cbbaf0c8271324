package http

import (
	"sync"

	"go.uber.org/zap"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

const sendBuffer = 16

type client struct {
	uid  string
	name string
	send chan outboundMessage[any]
}

// Hub tracks connected websocket clients and fans engine output out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Handlers binds the engine's outbound callbacks to this hub.
func (h *Hub) Handlers() app.Handlers {
	return app.Handlers{
		PostQuestion: func(post domain.QuestionPost) {
			h.broadcast(outboundMessage[any]{Type: "question", Payload: newQuestionPayload(post)})
		},
		PostMessage: func(text string) {
			h.broadcast(outboundMessage[any]{Type: "message", Payload: textPayload{Text: text}})
		},
		PostReply: func(text string, payload any) {
			c, ok := payload.(*client)
			if !ok {
				h.broadcast(outboundMessage[any]{Type: "message", Payload: textPayload{Text: text}})
				return
			}
			h.deliver(c, outboundMessage[any]{Type: "reply", Payload: textPayload{Text: text}})
		},
		PreFormat: func(text string) string {
			return "```\n" + text + "\n```"
		},
	}
}

// Len is the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// unregister removes c and closes its send channel; no broadcast can reach it afterwards.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(msg outboundMessage[any]) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.deliver(c, msg)
	}
}

// deliver never blocks: callers run under the engine lock.
func (h *Hub) deliver(c *client, msg outboundMessage[any]) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warnw("dropping message for slow client", "uid", c.uid, "type", msg.Type)
	}
}

type textPayload struct {
	Text string `json:"text"`
}

type questionPayload struct {
	ID              int64               `json:"id"`
	Category        string              `json:"category"`
	CategoryComment string              `json:"categoryComment,omitempty"`
	Prompt          string              `json:"prompt"`
	Value           int                 `json:"value"`
	NonText         bool                `json:"nonText"`
	ShowYear        int                 `json:"showYear,omitempty"`
	WinningUser     *domain.WinnerStats `json:"winningUser,omitempty"`
	WinningAnswer   string              `json:"winningAnswer,omitempty"`
}

// newQuestionPayload drops the answer so clients cannot read it off the wire.
func newQuestionPayload(post domain.QuestionPost) questionPayload {
	q := post.Question
	return questionPayload{
		ID:              q.ID,
		Category:        q.Category,
		CategoryComment: q.CategoryComment,
		Prompt:          q.Prompt,
		Value:           q.Value,
		NonText:         q.NonText,
		ShowYear:        q.ShowYear,
		WinningUser:     post.WinningUser,
		WinningAnswer:   post.WinningAnswer,
	}
}
