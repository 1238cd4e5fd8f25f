package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/fanout"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

type MemberChecker interface {
	IsMember(ctx context.Context, groupID string, userID int64) (bool, error)
}

type Authenticator interface {
	Authenticate(r *http.Request) (security.Identity, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	auth     Authenticator
	members  MemberChecker
	log      *slog.Logger

	pingEvery time.Duration
}

func NewServer(hub *Hub, auth Authenticator, members MemberChecker, log *slog.Logger) *Server {
	return &Server{
		hub:     hub,
		auth:    auth,
		members: members,
		log:     logger.Component(log, "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

func (s *Server) SetPingInterval(d time.Duration) {
	if d > 0 {
		s.pingEvery = d
	}
}

// WS endpoint: GET /ws?access_token=... (или Authorization: Bearer)
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth.Authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту
		s.log.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, id.UserID)
	s.hub.Register(c)
	metrics.WSConnections.Inc()
	s.log.Debug("ws connected", "user_id", id.UserID)

	ctx, cancel := context.WithCancel(r.Context())
	go s.writeLoop(ctx, c)
	s.readLoop(ctx, c)
	cancel()

	s.hub.Unregister(c)
	metrics.WSConnections.Dec()

	if err := c.Close(); err != nil {
		s.log.Debug("ws close failed", "user_id", id.UserID, "err", err)
	}
}

// Deliver раздаёт событие fan-out подписанным соединениям.
func (s *Server) Deliver(ev fanout.Event) {
	switch ev.Kind {
	case fanout.KindMessage:
		if ev.Message == nil {
			return
		}
		s.hub.Broadcast(ev.GroupID, Message{Type: TypeReceiveMessage, Payload: MessagePayload(ev.Message)})
	case fanout.KindGroupAdded:
		s.hub.SendToUser(ev.UserID, Message{
			Type:    TypeGroupAdded,
			Payload: GroupAddedPayload{GroupID: ev.GroupID, GroupName: ev.GroupName},
		})
	default:
		s.log.Debug("ws: unknown event", "kind", ev.Kind)
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("ws read failed", "user_id", c.userID, "err", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{Error: "malformed frame"}})
			continue
		}

		switch env.Type {
		case TypeJoinGroup:
			var p GroupRequestPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{Error: "malformed payload"}})
				continue
			}
			_ = c.Send(Message{Type: TypeAck, Payload: s.join(ctx, c, p)})
		case TypeLeaveGroup:
			var p GroupRequestPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{Error: "malformed payload"}})
				continue
			}
			s.hub.Leave(p.GroupID, c)
			_ = c.Send(Message{Type: TypeAck, Payload: AckPayload{Ref: p.Ref, OK: true}})
		default:
			_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{Error: "unknown type " + env.Type}})
		}
	}
}

func (s *Server) join(ctx context.Context, c *wsConn, p GroupRequestPayload) AckPayload {
	if p.GroupID == "" {
		metrics.WSJoins.WithLabelValues("denied").Inc()
		return AckPayload{Ref: p.Ref, Error: "missing group_id"}
	}

	ok, err := s.members.IsMember(ctx, p.GroupID, c.userID)
	switch {
	case err != nil && errors.Is(err, domain.ErrInvalidInput):
		metrics.WSJoins.WithLabelValues("denied").Inc()
		return AckPayload{Ref: p.Ref, Error: "invalid group_id"}
	case err != nil:
		metrics.WSJoins.WithLabelValues("error").Inc()
		s.log.Error("ws join: membership check failed", "group_id", p.GroupID, "user_id", c.userID, "err", err)
		return AckPayload{Ref: p.Ref, Error: "internal error"}
	case !ok:
		metrics.WSJoins.WithLabelValues("denied").Inc()
		return AckPayload{Ref: p.Ref, Error: domain.ErrNotMember.Error()}
	}

	s.hub.Join(p.GroupID, c)
	metrics.WSJoins.WithLabelValues("ok").Inc()
	return AckPayload{Ref: p.Ref, OK: true}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

type wsConn struct {
	conn   *websocket.Conn
	userID int64

	sendMu    sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newWsConn(c *websocket.Conn, userID int64) *wsConn {
	return &wsConn{
		conn:   c,
		userID: userID,
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	select {
	case <-c.closed:
		return websocket.ErrCloseSent
	default:
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *wsConn) UserID() int64 { return c.userID }

// MessagePayload - сообщение в формате кадра receive_message и HTTP API.
func MessagePayload(m *domain.ChatMessage) ChatMessagePayload {
	p := ChatMessagePayload{
		ID:        m.ID,
		RoomID:    m.GroupID,
		UserID:    strconv.FormatInt(m.UserID, 10),
		UserName:  m.UserName,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
	if m.ModifiedAt != nil {
		p.ModifiedAt = m.ModifiedAt.UnixMilli()
	}
	return p
}
