package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rebuildup/my-web-2025-sub006/pkg/search"
)

// EventMessage is pushed to WebSocket clients
type EventMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// handleWebSocket streams index update events to the client
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	clientChan := make(chan interface{}, 100)

	s.wsMutex.Lock()
	s.wsClients[conn] = clientChan
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		close(clientChan)
		conn.Close()
	}()

	s.sendWebSocketStats(conn)

	// Outgoing messages
	go func() {
		for msg := range clientChan {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	// Drain incoming frames until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) broadcastIndexEvent(event search.IndexEvent) {
	message := EventMessage{Type: "index_updated", Data: event}

	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	for _, clientChan := range s.wsClients {
		select {
		case clientChan <- message:
		default:
			// Client channel full, skip
		}
	}
}

// sendWebSocketStats writes the greeting before the writer goroutine starts
func (s *Server) sendWebSocketStats(conn *websocket.Conn) {
	stats := s.service.CacheStats()
	conn.WriteJSON(EventMessage{
		Type: "stats",
		Data: map[string]interface{}{
			"cacheSize":    stats.Size,
			"cacheMaxSize": stats.MaxSize,
		},
	})
}
