package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rubiojr/convos/pkg/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is handled by the middleware; the firehose is read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// HandleFirehose serves GET /api/firehose, a websocket stream of every
// message stored while the connection is open.
func (s *Server) HandleFirehose(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, "firehose_unavailable", "Realtime stream is not enabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("upgrading firehose connection: %v", err)
		return
	}

	id, events := s.hub.Register()
	defer s.hub.Unregister(id)
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debugf("closing firehose connection: %v", err)
		}
	}()

	// Drain reads so close frames and pongs are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, event); err != nil {
				logger.Debugf("writing firehose event: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event realtime.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}
