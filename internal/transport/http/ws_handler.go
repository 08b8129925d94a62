package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/app"
	"quizbowl-engine/internal/domain"
)

// WSHandler is the team client channel: submissions in, results out.
type WSHandler struct {
	submissions *app.SubmissionService
	upgrader    websocket.Upgrader
	log         zerolog.Logger
}

func NewWSHandler(submissions *app.SubmissionService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		submissions: submissions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	QuestionID string             `json:"questionId"`
	RoundID    string             `json:"roundId"`
	Type       string             `json:"type"`
	Answer     domain.AnswerValue `json:"answer"`
	TimeSpent  float64            `json:"timeSpent"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and serves the submission loop for one
// team. A writer goroutine keeps connection writes single-threaded.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("teamId")
	if teamID == "" {
		http.Error(w, "missing teamId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn().Err(err).Str("team", teamID).Msg("ws write error")
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "connected", Payload: map[string]string{"teamId": teamID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid submit payload"}}
				continue
			}
			result, err := h.submissions.Submit(
				r.Context(),
				teamID,
				payload.QuestionID,
				payload.RoundID,
				domain.QuestionType(payload.Type),
				payload.Answer,
				payload.TimeSpent,
			)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "submitResult", Payload: result}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}
