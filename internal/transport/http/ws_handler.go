package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"learnpath-service/internal/app"
)

// WSHandler serves the attempt live feed (ticks, completion) and the
// per-connection notification display queue.
type WSHandler struct {
	sessions      *app.SessionService
	notifications *app.NotificationService
	pollInterval  time.Duration
	queueOpts     []app.QueueOption
	log           *logrus.Entry
	upgrader      websocket.Upgrader
}

func NewWSHandler(sessions *app.SessionService, notifications *app.NotificationService, pollInterval time.Duration, log *logrus.Entry, queueOpts ...app.QueueOption) *WSHandler {
	return &WSHandler{
		sessions:      sessions,
		notifications: notifications,
		pollInterval:  pollInterval,
		queueOpts:     queueOpts,
		log:           log,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type completedPayload struct {
	Reason string      `json:"reason"`
	Result interface{} `json:"result"`
}

// ServeAttemptWS streams attempt state to the quiz view and accepts
// navigation actions over the same connection.
func (h *WSHandler) ServeAttemptWS(w http.ResponseWriter, r *http.Request) {
	attemptID := mux.Vars(r)["attemptID"]
	userID := requestUserID(r)

	updates, cancel, err := h.sessions.Subscribe(attemptID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					h.log.WithError(err).Debug("ws write error")
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				msg := attemptEventMessage(event)
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if view, err := h.sessions.Get(r.Context(), attemptID, userID); err == nil {
		send <- outboundMessage[any]{Type: "state", Payload: view}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		view, err := h.applyAttemptAction(r, attemptID, userID, inbound)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			continue
		}
		send <- outboundMessage[any]{Type: "state", Payload: view}
	}

	close(closeSignals)
	<-updatesDone
	<-writerDone
}

type selectPayload struct {
	OptionIndex int `json:"optionIndex"`
}

func (h *WSHandler) applyAttemptAction(r *http.Request, attemptID, userID string, inbound inboundMessage) (app.AttemptView, error) {
	ctx := r.Context()
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return app.AttemptView{}, err
		}
		return h.sessions.SelectAnswer(ctx, attemptID, userID, payload.OptionIndex)
	case "advance":
		return h.sessions.Advance(ctx, attemptID, userID)
	case "retreat":
		return h.sessions.Retreat(ctx, attemptID, userID)
	case "submit":
		return h.sessions.Submit(ctx, attemptID, userID)
	default:
		return h.sessions.Get(ctx, attemptID, userID)
	}
}

func attemptEventMessage(event app.AttemptEvent) outboundMessage[any] {
	switch event.Type {
	case app.EventCompleted:
		return outboundMessage[any]{Type: "completed", Payload: completedPayload{
			Reason: string(event.Reason),
			Result: event.Result,
		}}
	default:
		return outboundMessage[any]{Type: "tick", Payload: tickPayload{Remaining: event.Remaining}}
	}
}

type dismissPayload struct {
	ID string `json:"id"`
}

// ServeNotificationsWS runs one display queue per connection: the full
// notification list is polled and ingested, queue changes are pushed, and
// dismissals arrive inbound. Closing the socket cancels every pending
// auto-dismiss timer for this page lifetime.
func (h *WSHandler) ServeNotificationsWS(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pollDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					h.log.WithError(err).Debug("ws write error")
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	opts := append([]app.QueueOption{}, h.queueOpts...)
	opts = append(opts, app.WithQueueEvents(func(event app.QueueEvent) {
		select {
		case send <- outboundMessage[any]{Type: string(event.Type), Payload: event.Notification}:
		case <-closeSignals:
		}
	}))
	queue := app.NewDisplayQueue(userID, h.notifications, h.log, opts...)
	defer queue.Close()

	go func() {
		defer close(pollDone)
		ticker := time.NewTicker(h.pollInterval)
		defer ticker.Stop()
		for {
			list, err := h.notifications.List(r.Context(), userID)
			if err != nil {
				h.log.WithError(err).Warn("list notifications failed")
			} else {
				queue.Ingest(list)
			}
			select {
			case <-ticker.C:
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
		if inbound.Type != "dismiss" {
			continue
		}
		var payload dismissPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			continue
		}
		queue.Dismiss(r.Context(), payload.ID)
	}

	close(closeSignals)
	<-pollDone
	queue.Close()
	<-writerDone
}
