package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// Authenticator resolves a bearer token to the principal stored at login.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}

// WSHandler plays one quiz session per websocket connection.
type WSHandler struct {
	service  *app.QuizService
	auth     Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, auth Authenticator) *WSHandler {
	return &WSHandler{
		service: service,
		auth:    auth,
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

type selectPayload struct {
	Index int `json:"index"`
}

type gotoPayload struct {
	Position int `json:"position"`
}

type exitPayload struct {
	Confirm bool `json:"confirm"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

const (
	msgState  = "state"
	msgResult = "result"
	msgError  = "error"
)

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: msgError, Payload: errorPayload{Message: message}}
}

// ServeWS upgrades the request, starts a session for the caller and relays
// its snapshots until the client goes away. Leaving mid-quiz abandons it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var principal *domain.Principal
	if token := tokenFromRequest(r); token != "" {
		p, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		principal = &p
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	started, err := h.service.Start(r.Context(), principal, query.Get("category"), domain.Difficulty(query.Get("difficulty")))
	if err != nil {
		if started.ID != "" {
			_ = conn.WriteJSON(outboundMessage[app.SessionSnapshot]{Type: msgState, Payload: started})
		}
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	sessionID := started.ID

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer cancel()
	defer h.abandonIfRunning(sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var final terminalState

	// Only the writer goroutine touches the connection after this point.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if snap.Status.Terminal() {
					final.set(snap)
				}
				if !h.deliver(send, closeSignals, outboundMessage[any]{Type: msgState, Payload: snap}) {
					return
				}
				if snap.Status == app.StatusCompleted && snap.Result != nil {
					if !h.deliver(send, closeSignals, outboundMessage[any]{Type: msgResult, Payload: snap.Result}) {
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if snap, ok := final.get(); ok {
			send <- h.afterTerminal(inbound.Type, snap)
			continue
		}
		if msg, ok := h.handle(r.Context(), sessionID, inbound); !ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// terminalState remembers the last snapshot of an ended session.
type terminalState struct {
	mu   sync.Mutex
	snap *app.SessionSnapshot
}

func (t *terminalState) set(snap app.SessionSnapshot) {
	t.mu.Lock()
	t.snap = &snap
	t.mu.Unlock()
}

func (t *terminalState) get() (app.SessionSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap == nil {
		return app.SessionSnapshot{}, false
	}
	return *t.snap, true
}

func (h *WSHandler) deliver(send chan<- outboundMessage[any], closeSignals <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-closeSignals:
		return false
	}
}

// handle applies one inbound command. State changes reach the client through
// the subscription, so only failures produce a direct reply.
func (h *WSHandler) handle(ctx context.Context, sessionID string, inbound inboundMessage) (outboundMessage[any], bool) {
	var err error
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid select payload"), false
		}
		_, err = h.service.Select(ctx, sessionID, payload.Index)
	case "next":
		_, err = h.service.Next(ctx, sessionID)
	case "previous":
		_, err = h.service.Previous(ctx, sessionID)
	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid goto payload"), false
		}
		_, err = h.service.GoTo(ctx, sessionID, payload.Position)
	case "finish":
		_, err = h.service.Finish(ctx, sessionID)
	case "exit":
		var payload exitPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return errorMessage("invalid exit payload"), false
			}
		}
		if !payload.Confirm {
			return errorMessage("exit requires confirmation; progress will be lost"), false
		}
		_, err = h.service.Exit(ctx, sessionID)
	default:
		return errorMessage("unsupported message type"), false
	}
	if err != nil {
		return errorMessage(err.Error()), false
	}
	return outboundMessage[any]{}, true
}

// afterTerminal answers commands sent once the session has ended. Finishing
// again hands back the stored result.
func (h *WSHandler) afterTerminal(msgType string, final app.SessionSnapshot) outboundMessage[any] {
	if msgType == "finish" && final.Result != nil {
		return outboundMessage[any]{Type: msgResult, Payload: final.Result}
	}
	return errorMessage(domain.ErrSessionClosed.Error())
}

func (h *WSHandler) abandonIfRunning(sessionID string) {
	ctx := context.Background()
	snap, err := h.service.Snapshot(ctx, sessionID)
	if err != nil || snap.Status != app.StatusInProgress {
		return
	}
	if _, err := h.service.Exit(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionClosed) {
		log.Printf("abandon session %s failed: %v", sessionID, err)
	}
}

// tokenFromRequest reads a bearer token from the Authorization header or,
// for browsers that cannot set headers on websocket upgrades, the token query parameter.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
