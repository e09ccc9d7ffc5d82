package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seantiz/pomoflow/internal/engine"
	"github.com/seantiz/pomoflow/internal/model"
)

const (
	// Time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	wsPongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than wsPongWait.
	wsPingPeriod = (wsPongWait * 9) / 10
	// Maximum message size allowed from peer.
	wsMaxMessageSize = 512
)

// wsMessage is a server-to-client WebSocket frame.
type wsMessage struct {
	Type  string         `json:"type"`
	State *timerResponse `json:"state,omitempty"`
	Cue   string         `json:"cue,omitempty"`
	Error string         `json:"error,omitempty"`
}

func stateMessage(st model.TimerState) wsMessage {
	resp := newTimerResponse(st)
	return wsMessage{Type: engine.EventState, State: &resp}
}

// handleWebSocket upgrades the connection and runs a two-way presentation
// channel: engine events are pushed down, intents are read back up.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, unsub := s.engine.Broker().Subscribe()
	defer unsub()

	// Replies to the reader goroutine are funnelled through the writer so
	// only one goroutine ever writes to conn.
	replies := make(chan wsMessage, 8)
	readDone := make(chan struct{})
	go s.wsReadPump(conn, replies, readDone)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	if err := wsWrite(conn, stateMessage(s.engine.Snapshot())); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				_ = wsWrite(conn, wsMessage{Type: "done"})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine stopped"),
					time.Now().Add(wsWriteWait))
				return
			}
			msg := wsMessage{Type: ev.Type, Cue: ev.Cue}
			if ev.State != nil {
				msg = stateMessage(*ev.State)
			}
			if err := wsWrite(conn, msg); err != nil {
				return
			}
		case msg := <-replies:
			if err := wsWrite(conn, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

// wsReadPump reads intents until the peer goes away.
func (s *Server) wsReadPump(conn *websocket.Conn, replies chan<- wsMessage, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", "error", err)
			}
			return
		}

		var req intentRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.logger.Warn("websocket: invalid intent message", "error", err)
			s.wsReply(replies, wsMessage{Type: "error", Error: "invalid JSON message"})
			continue
		}
		if _, err := s.applyIntent(req.Intent); errors.Is(err, errUnknownIntent) {
			s.logger.Warn("websocket: unknown intent", "intent", req.Intent)
			s.wsReply(replies, wsMessage{Type: "error", Error: "unknown intent"})
		}
	}
}

// wsReply queues a reply, dropping it if the writer is backed up.
func (s *Server) wsReply(replies chan<- wsMessage, msg wsMessage) {
	select {
	case replies <- msg:
	default:
	}
}

func wsWrite(conn *websocket.Conn, msg wsMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
