package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/config"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/service"
)

// Replier generates a streamed reply turn.
type Replier interface {
	GenerateReply(ctx context.Context, req *domain.ReplyRequest, emit service.Emitter) error
}

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *Hub
	replier  Replier
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *Hub, replier Replier, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		replier: replier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP upgrades the request and starts the connection pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return
	}

	conn := s.hub.NewConnection(ws)
	if err := s.hub.Register(conn); err != nil {
		s.logger.Debug().Err(err).Msg("rejecting connection during shutdown")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), s.cfg.WSWriteTimeout)
		conn.Close()
		return
	}

	ws.SetReadLimit(s.cfg.WSMaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	return s.hub.ConnectionCount()
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	_ = conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Str("conn_id", conn.ID).Msg("websocket read failed")
			}
			return
		}
		_ = conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
		s.handleMessage(conn, message)
	}
}

// writePump writes queued messages and keepalive pings.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{}, s.cfg.WSWriteTimeout)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message, s.cfg.WSWriteTimeout); err != nil {
				s.logger.Warn().Err(err).Str("conn_id", conn.ID).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil, s.cfg.WSWriteTimeout); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *Connection, data []byte) {
	var base BaseMessage
	if err := sonic.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", domain.ErrorCodeInvalidRequest, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeReply:
		s.handleReply(conn, data)
	case TypeCancel:
		conn.cancelTurn()
	default:
		s.sendError(conn, base.MessageID, domain.ErrorCodeInvalidRequest, "unknown message type: "+base.Type)
	}
}

// handleReply runs a turn in the background and relays its events.
func (s *Server) handleReply(conn *Connection, data []byte) {
	var msg ReplyMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", domain.ErrorCodeInvalidRequest, "invalid reply message")
		return
	}
	req := msg.ReplyRequest
	if req.MessageID == "" {
		req.MessageID = uuid.New().String()
	}
	if err := service.ValidateReply(&req); err != nil {
		s.sendError(conn, req.MessageID, domain.ErrorCodeInvalidRequest, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	if !conn.beginTurn(req.MessageID, cancel) {
		cancel()
		s.sendError(conn, req.MessageID, domain.ErrorCodeInvalidRequest, domain.ErrTurnInFlight.Error())
		return
	}

	go func() {
		defer func() {
			conn.endTurn(req.MessageID)
			cancel()
		}()

		err := s.replier.GenerateReply(ctx, &req, func(evt domain.StreamEvent) error {
			return s.hub.SendJSON(conn, domain.WireEvent{
				Type:      evt.Type,
				MessageID: domain.MessageIDOf(evt.Data),
				Ts:        time.Now().UnixMilli(),
				Data:      evt.Data,
			})
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("message_id", req.MessageID).Msg("websocket turn ended with error")
		}
	}()
}

// sendError sends an error event to a connection.
func (s *Server) sendError(conn *Connection, messageID, code, message string) {
	_ = s.hub.SendJSON(conn, domain.WireEvent{
		Type:      domain.StreamEventError,
		MessageID: messageID,
		Ts:        time.Now().UnixMilli(),
		Data:      &domain.ErrorEventData{MessageID: messageID, Code: code, Message: message},
	})
}
