package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/roomkit/relay/internal/server"
)

func (s *RelayApp) writeJson(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Printf("failed to encode response: %v", err)
	}
}

// roomRequest answers a plain HTTP request addressed to a room. The
// room springs into existence on first contact, same as over the
// socket; for counter rooms POST increments and the body is the
// decimal value, every other kind answers "ok".
func (s *RelayApp) roomRequest(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("room")
	if roomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	body, err := s.rs.Request(roomId, r.Method)
	if err != nil {
		s.log.Printf("room request: %v", err)
		errResp := NewServiceUnavailableError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(body))
}

// serveWs upgrades the connection and joins it to the room named in
// the path. There is no authentication: identity is bound later by the
// client's identify message, if it sends one.
func (s *RelayApp) serveWs(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("room")
	if roomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, "*") ||
				slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.rs, s.log)

	s.rs.RegisterClient(client)
	if err := s.rs.Join(roomId, client); err != nil {
		s.log.Println("join room:", err)
		s.rs.DeregisterClient(client)
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
