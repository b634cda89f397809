package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

// The listener is loopback-only, so cross-origin upgrades cannot reach a
// foreign host; accept any origin the browser reports.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	log := s.log.With("remote", clientIP(r))
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	snapshot, events, unsub := s.deps.Hub.Subscribe()
	defer unsub()

	// Seed the client with everything logged so far; queued events are
	// guaranteed newer than the snapshot.
	seed := StreamEvent{
		Type:      eventTypeLog,
		Data:      snapshot,
		Replace:   true,
		Timestamp: time.Now(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(seed); err != nil {
		log.Warn("websocket snapshot failed", "err", err)
		return
	}
	log.Info("websocket connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Info("websocket disconnected")
			return
		case event := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				log.Warn("websocket write failed", "err", err)
				return
			}
		}
	}
}
