package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-host or reverse-proxied; origin checks happen
	// upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 5 * time.Minute
)

// wsInbound is one chat message from the client.
type wsInbound struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// handleWebSocket runs a live chat session: each inbound message goes
// through the full pipeline and the result is written back on the same
// connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}
	s.logger.Info("websocket session started", "user", userID)

	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", "user", userID, "error", err)
			}
			break
		}
		if in.Message == "" {
			continue
		}
		if in.UserID != "" {
			userID = in.UserID
		}

		result := s.agent.Process(r.Context(), userID, in.Message)

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(result); err != nil {
			s.logger.Debug("websocket write error", "user", userID, "error", err)
			break
		}
	}

	s.logger.Info("websocket session ended", "user", userID)
}
