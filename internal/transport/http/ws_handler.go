package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"world-quiz-service/internal/app"
	"world-quiz-service/internal/domain"
	"world-quiz-service/internal/identity"
)

const writeWait = 10 * time.Second

type WSHandler struct {
	service  *app.QuizService
	verifier *identity.Verifier
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, verifier *identity.Verifier) *WSHandler {
	return &WSHandler{
		service:  service,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Text string `json:"text"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades HTTP requests to websockets. Each connection is one quiz
// view: it owns one session at a time, and the session is discarded when the
// connection goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	who, err := h.verifier.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	snap, err := h.service.Open(ctx, who)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorBody(err)})
		return
	}

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	push := func(msg outboundMessage) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		case <-closeSignals:
			return false
		}
	}
	pushError := func(err error) bool {
		return push(outboundMessage{Type: "error", Payload: errorBody(err)})
	}

	var forwarders sync.WaitGroup
	follow := func(sessionID string) func() {
		updates, cancel, err := h.service.Subscribe(ctx, sessionID)
		if err != nil {
			pushError(err)
			return func() {}
		}
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			forward(updates, push, closeSignals)
		}()
		return cancel
	}

	sessionID := snap.SessionID
	push(outboundMessage{Type: "session", Payload: snap})
	unfollow := follow(sessionID)

read:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			if _, err := h.service.Start(ctx, sessionID); err != nil {
				pushError(err)
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				pushError(errInvalidPayload)
				continue
			}
			res, err := h.service.Submit(ctx, sessionID, payload.Text)
			if err != nil {
				pushError(err)
				continue
			}
			push(outboundMessage{Type: "answerResult", Payload: res})
		case "finish":
			if _, err := h.service.Finish(ctx, sessionID); err != nil {
				pushError(err)
			}
		case "quit":
			snap, err := h.service.RequestQuit(ctx, sessionID)
			if err != nil {
				pushError(err)
				continue
			}
			push(outboundMessage{Type: "quitPending", Payload: snap})
		case "cancelQuit":
			if _, err := h.service.CancelQuit(ctx, sessionID); err != nil {
				pushError(err)
			}
		case "confirmQuit":
			if err := h.service.ConfirmQuit(ctx, sessionID); err != nil {
				pushError(err)
				continue
			}
			push(outboundMessage{Type: "quit", Payload: map[string]string{"sessionId": sessionID}})
			break read
		case "restart":
			unfollow()
			fresh, err := h.service.Restart(ctx, sessionID)
			if err != nil {
				pushError(err)
				continue
			}
			sessionID = fresh.SessionID
			push(outboundMessage{Type: "session", Payload: fresh})
			unfollow = follow(sessionID)
		default:
			pushError(errUnsupportedMessage)
		}
	}

	unfollow()
	h.service.Close(context.Background(), sessionID)
	close(closeSignals)
	forwarders.Wait()
	close(send)
	<-writerDone
}

// forward relays session snapshots as state messages, plus one finished
// message carrying the result.
func forward(updates <-chan domain.SessionSnapshot, push func(outboundMessage) bool, closeSignals <-chan struct{}) {
	finished := false
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if !push(outboundMessage{Type: "state", Payload: update}) {
				return
			}
			if update.Result != nil && !finished {
				finished = true
				if !push(outboundMessage{Type: "finished", Payload: update.Result}) {
					return
				}
			}
		case <-closeSignals:
			return
		}
	}
}
