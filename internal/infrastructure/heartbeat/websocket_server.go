package heartbeat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocketServer keeps sessions alive over a persistent connection.
// Players that hold the socket open send periodic beats instead of
// polling the HTTP heartbeat endpoint; closing the socket without an
// explicit end message leaves the session to the idle sweeper.
type WebSocketServer struct {
	sessions ports.SessionService

	connections map[domain.SessionID]*websocket.Conn
	mu          sync.RWMutex

	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	logger *zap.SugaredLogger
}

type beatMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

type beatReply struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func NewWebSocketServer(sessions ports.SessionService, logger *zap.SugaredLogger) *WebSocketServer {
	return &WebSocketServer{
		sessions:     sessions,
		connections:  make(map[domain.SessionID]*websocket.Conn),
		pingInterval: 30 * time.Second,
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		logger:       logger,
	}
}

// SetPingInterval sets ping interval for WebSocket connections
func (s *WebSocketServer) SetPingInterval(interval time.Duration) {
	s.pingInterval = interval
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := domain.SessionID(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		s.logger.Warn("missing session_id in query parameters")
		return
	}

	s.mu.Lock()
	existingConn, isReconnect := s.connections[sessionID]
	if isReconnect && existingConn != nil {
		existingConn.Close()
		s.logger.Infow("closing old connection for reconnecting session", "session_id", sessionID)
	}
	s.connections[sessionID] = conn
	s.mu.Unlock()

	s.logger.Infow("session connected via WebSocket", "session_id", sessionID, "reconnect", isReconnect)

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan beatMessage, 10)
	errorChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			var msg beatMessage
			if err := conn.ReadJSON(&msg); err != nil {
				select {
				case errorChan <- err:
				case <-done:
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.readTimeout))
			// The handler may have stopped consuming; never block on a
			// full channel or the reader goroutine leaks.
			select {
			case messageChan <- msg:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case msg := <-messageChan:
			closed, err := s.handleMessage(context.Background(), sessionID, conn, msg)
			if err != nil {
				s.logger.Infow("error handling session message", "session_id", sessionID, "error", err)
				s.sendError(conn, err.Error())
			}
			if closed {
				goto cleanup
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Infow("error sending ping", "session_id", sessionID, "error", err)
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading session message", "session_id", sessionID, "error", err)
			}
			goto cleanup
		}
	}

cleanup:
	s.mu.Lock()
	delete(s.connections, sessionID)
	s.mu.Unlock()

	s.logger.Infow("session disconnected", "session_id", sessionID)
}

// handleMessage applies one client message. The returned bool reports
// whether the connection should close (after an end message).
func (s *WebSocketServer) handleMessage(ctx context.Context, sessionID domain.SessionID, conn *websocket.Conn, msg beatMessage) (bool, error) {
	if msg.SessionID != "" && domain.SessionID(msg.SessionID) != sessionID {
		return false, domain.ErrSessionNotFound
	}

	switch msg.Type {
	case "heartbeat":
		if err := s.sessions.Heartbeat(ctx, sessionID); err != nil {
			return false, err
		}
		s.send(conn, beatReply{Type: "heartbeat_ack", SessionID: string(sessionID)})
		return false, nil

	case "end":
		if err := s.sessions.End(ctx, sessionID); err != nil {
			return true, err
		}
		s.send(conn, beatReply{Type: "end_ack", SessionID: string(sessionID)})
		return true, nil

	default:
		s.sendError(conn, "unknown message type: "+msg.Type)
		return false, nil
	}
}

func (s *WebSocketServer) send(conn *websocket.Conn, reply beatReply) {
	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := conn.WriteJSON(reply); err != nil {
		s.logger.Infow("error sending reply", "error", err)
	}
}

func (s *WebSocketServer) sendError(conn *websocket.Conn, message string) {
	s.send(conn, beatReply{Type: "error", Error: message})
}

// ConnectedSessions lists session IDs with a live socket.
func (s *WebSocketServer) ConnectedSessions() []domain.SessionID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]domain.SessionID, 0, len(s.connections))
	for id := range s.connections {
		ids = append(ids, id)
	}
	return ids
}

// IsConnected reports whether a session currently holds a socket.
func (s *WebSocketServer) IsConnected(sessionID domain.SessionID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.connections[sessionID]
	return ok
}
