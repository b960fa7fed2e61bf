package api

import (
	"net/http"
	"sync"
	"time"

	"fleetplan/internal/obs"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsReadLimit    = 1 << 16
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 20 * time.Second
	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// wsMessage is the frame exchanged on /v1/runs/ws. Clients send subscribe,
// unsubscribe and ping; the server answers with subscribed, unsubscribed,
// pong, event and error.
type wsMessage struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Event   *Event `json:"event,omitempty"`
	Message string `json:"message,omitempty"`
}

// RunsWSHandler handles /v1/runs/ws. A topic query parameter subscribes on
// connect; topics are scenario ids or "all".
func (s *Server) RunsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()
	reqID := obs.RequestID(r.Context())

	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v)
	}

	subs := map[string]chan Event{}
	subscribe := func(topic string) {
		if topic == "" {
			_ = write(wsMessage{Type: "error", Message: "topic required"})
			return
		}
		if _, ok := subs[topic]; !ok {
			ch := s.Broker.Subscribe(topic)
			subs[topic] = ch
			go func() {
				for evt := range ch {
					evt := evt
					if err := write(wsMessage{Type: "event", Topic: topic, Event: &evt}); err != nil {
						return
					}
				}
			}()
		}
		_ = write(wsMessage{Type: "subscribed", Topic: topic})
	}
	defer func() {
		for topic, ch := range subs {
			s.Broker.Unsubscribe(topic, ch)
		}
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsReadTimeout)) })

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				wmu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
				wmu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	if topic := r.URL.Query().Get("topic"); topic != "" {
		subscribe(topic)
	}
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("req_id", reqID).Msg("runs ws closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		switch msg.Type {
		case "subscribe":
			subscribe(msg.Topic)
		case "unsubscribe":
			if ch, ok := subs[msg.Topic]; ok {
				s.Broker.Unsubscribe(msg.Topic, ch)
				delete(subs, msg.Topic)
			}
			_ = write(wsMessage{Type: "unsubscribed", Topic: msg.Topic})
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		default:
			_ = write(wsMessage{Type: "error", Message: "unknown message type " + msg.Type})
		}
	}
}
