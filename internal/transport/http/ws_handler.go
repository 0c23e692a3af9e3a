package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"smart-quiz-service/internal/app"
	"smart-quiz-service/internal/domain"
)

// WSHandler runs one quiz attempt over a websocket: the client receives
// questions one at a time, answers each, and gets the scored result when the
// last answer lands. Dropping the connection mid-attempt abandons the session.
type WSHandler struct {
	engine   *app.Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine) *WSHandler {
	return &WSHandler{
		engine: engine,
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
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type questionPayload struct {
	Number  int    `json:"number"`
	Total   int    `json:"total"`
	Text    string `json:"text"`
	OptionA string `json:"optionA"`
	OptionB string `json:"optionB"`
	OptionC string `json:"optionC"`
	OptionD string `json:"optionD"`
}

// ServeWS upgrades the request and drives the session through its lifecycle.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userName := r.URL.Query().Get("user")
	categoryID, err := strconv.ParseInt(r.URL.Query().Get("categoryId"), 10, 64)
	if userName == "" || err != nil {
		http.Error(w, "missing user or categoryId", http.StatusBadRequest)
		return
	}
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	age, _ := strconv.Atoi(r.URL.Query().Get("age"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.engine.Start(r.Context(), userName, age, categoryID, count)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	// The answer loop writes sequentially from this goroutine, so no writer
	// pump is needed. Abandon on any early exit; it is a no-op after Complete.
	defer func() {
		if session.State() == domain.StateInProgress {
			_ = h.engine.Abandon(session)
		}
	}()

	if !h.sendCurrentQuestion(conn, session) {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, "invalid answer payload")
				continue
			}
			if err := h.engine.SubmitAnswer(session, payload.Answer); err != nil {
				h.sendError(conn, err.Error())
				continue
			}
			answered, total := session.Progress()
			if answered < total {
				if !h.sendCurrentQuestion(conn, session) {
					return
				}
				continue
			}
			result, err := h.engine.Complete(r.Context(), session)
			if err != nil {
				h.sendError(conn, err.Error())
				return
			}
			_ = conn.WriteJSON(outboundMessage[domain.Result]{Type: "result", Payload: result})
			return
		case "abandon":
			if err := h.engine.Abandon(session); err != nil {
				h.sendError(conn, err.Error())
				continue
			}
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "abandoned", Payload: errorPayload{}})
			return
		default:
			h.sendError(conn, "unsupported message type")
		}
	}
}

func (h *WSHandler) sendCurrentQuestion(conn *websocket.Conn, session *app.Session) bool {
	question, ok := session.CurrentQuestion()
	if !ok {
		return false
	}
	answered, total := session.Progress()
	msg := outboundMessage[questionPayload]{Type: "question", Payload: questionPayload{
		Number:  answered + 1,
		Total:   total,
		Text:    question.Text,
		OptionA: question.OptionA,
		OptionB: question.OptionB,
		OptionC: question.OptionC,
		OptionD: question.OptionD,
	}}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("ws write error: %v", err)
		return false
	}
	return true
}

func (h *WSHandler) sendError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}
