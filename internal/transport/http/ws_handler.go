package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// MessageHandler is the part of the engine the bridge drives.
type MessageHandler interface {
	HandleMessage(ctx context.Context, uid, text string, payload any, onCorrect func()) error
	CurrentQuestion() (domain.Question, bool)
}

type WSHandler struct {
	engine   MessageHandler
	hub      *Hub
	names    app.NameDirectory
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

func NewWSHandler(engine MessageHandler, hub *Hub, names app.NameDirectory, logger *zap.SugaredLogger) *WSHandler {
	return &WSHandler{
		engine: engine,
		hub:    hub,
		names:  names,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.Named("ws"),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type joinedPayload struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and relays chat messages between the client and the engine.
// uid defaults to a random uuid and name to the uid.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		uid = uuid.NewString()
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = uid
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if err := h.names.Remember(ctx, uid, name); err != nil {
		h.logger.Warnw("remember display name", "uid", uid, "error", err)
	}

	c := &client{uid: uid, name: name, send: make(chan outboundMessage[any], sendBuffer)}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debugw("ws write error", "uid", uid, "error", err)
				return
			}
		}
	}()

	// The greeting goes out before registering so no broadcast can overtake it.
	c.send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{UID: uid, Name: name}}
	if q, ok := h.engine.CurrentQuestion(); ok {
		c.send <- outboundMessage[any]{Type: "question", Payload: newQuestionPayload(domain.QuestionPost{Question: q})}
	}
	h.hub.register(c)
	h.logger.Infow("client connected", "uid", uid, "name", name)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "message":
			var payload textPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.hub.deliver(c, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid message payload"}})
				continue
			}
			onCorrect := func() {
				h.hub.deliver(c, outboundMessage[any]{Type: "correct", Payload: textPayload{Text: payload.Text}})
			}
			if err := h.engine.HandleMessage(ctx, uid, payload.Text, c, onCorrect); err != nil {
				h.logger.Errorw("handle message", "uid", uid, "error", err)
				h.hub.deliver(c, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "message could not be processed"}})
			}
		default:
			h.hub.deliver(c, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	h.hub.unregister(c)
	<-writerDone
	h.logger.Infow("client disconnected", "uid", uid)
}
