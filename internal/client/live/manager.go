// Package live держит единственное WS-соединение клиента: переподключение
// с backoff, подписки на комнаты и разбор входящих событий.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/chat-service/internal/client/correlation"
	"github.com/cwrk-planet/chat-service/internal/client/model"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

var (
	ErrJoinRejected = errors.New("live: join rejected")
	// ErrNotConnected - соединения сейчас нет. Комната из JoinRoom остаётся
	// в списке и будет подписана при следующем подключении.
	ErrNotConnected = errors.New("live: not connected")
)

// Handler получает события потока. OnMessage/OnGroupAdded вызываются из
// горутины чтения и не должны блокироваться надолго.
type Handler interface {
	OnMessage(m model.Message)
	OnGroupAdded(r model.Room)
	// OnReconnected - соединение восстановлено (или впервые установлено при
	// отложенных подписках), подписки уже переотправлены.
	OnReconnected(ctx context.Context)
}

type Config struct {
	URL   string // ws://host:port/ws
	Token string

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AckTimeout     time.Duration
	WriteTimeout   time.Duration
}

func (c *Config) defaults() {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

type Manager struct {
	cfg     Config
	dialer  *websocket.Dialer
	handler Handler
	acks    *correlation.Registry[struct{}]
	log     *slog.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	rooms map[string]struct{}

	writeMu sync.Mutex
}

func NewManager(cfg Config, h Handler, log *slog.Logger) *Manager {
	cfg.defaults()
	return &Manager{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		handler: h,
		acks:    correlation.NewRegistry[struct{}](),
		log:     logger.Component(log, "live"),
		rooms:   make(map[string]struct{}),
	}
}

// SetHandler - для случая, когда обработчик создаётся после менеджера.
func (m *Manager) SetHandler(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Run держит соединение до отмены ctx. Разрыв не фатален: повторное
// подключение с экспоненциальным backoff, сброс backoff после успеха.
func (m *Manager) Run(ctx context.Context) error {
	backoff := m.cfg.InitialBackoff
	connectedBefore := false

	for {
		conn, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := jitter(backoff)
			m.log.Warn("live connect failed", "err", err, "backoff", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
			if backoff > m.cfg.MaxBackoff {
				backoff = m.cfg.MaxBackoff
			}
			continue
		}
		backoff = m.cfg.InitialBackoff

		m.setConn(conn)
		m.log.Info("live connected", "url", m.cfg.URL, "reconnect", connectedBefore)

		readDone := make(chan error, 1)
		go func() { readDone <- m.readLoop(conn) }()

		// подписки, запрошенные без соединения, отправляются при первом подключении
		if connectedBefore || len(m.Rooms()) > 0 {
			go m.resubscribe(ctx)
		}
		connectedBefore = true

		select {
		case <-ctx.Done():
			m.clearConn(conn)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
			<-readDone
			return ctx.Err()
		case err := <-readDone:
			m.clearConn(conn)
			_ = conn.Close()
			m.log.Warn("live connection lost", "err", err)
		}
	}
}

// JoinRoom подписывается на комнату и ждёт ack сервера. Комната запоминается
// и будет переподписана после каждого переподключения. Без соединения
// сразу возвращает ErrNotConnected, не дожидаясь reconnect.
func (m *Manager) JoinRoom(ctx context.Context, roomID string) error {
	m.mu.Lock()
	m.rooms[roomID] = struct{}{}
	m.mu.Unlock()

	err := m.request(ctx, ws.TypeJoinGroup, roomID)
	if errors.Is(err, ErrJoinRejected) {
		m.mu.Lock()
		delete(m.rooms, roomID)
		m.mu.Unlock()
	}
	return err
}

func (m *Manager) LeaveRoom(ctx context.Context, roomID string) error {
	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()

	return m.request(ctx, ws.TypeLeaveGroup, roomID)
}

// Rooms - комнаты, на которые менеджер подписывает соединение.
func (m *Manager) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		out = append(out, id)
	}
	return out
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

func (m *Manager) resubscribe(ctx context.Context) {
	for _, id := range m.Rooms() {
		if err := m.request(ctx, ws.TypeJoinGroup, id); err != nil {
			m.log.Warn("resubscribe failed", "room_id", id, "err", err)
		}
	}

	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h.OnReconnected(ctx)
	}
}

// request отправляет join/leave и ждёт ack с тем же ref.
func (m *Manager) request(ctx context.Context, typ, roomID string) error {
	conn := m.currentConn()
	if conn == nil {
		return ErrNotConnected
	}

	ref := correlation.NewID()
	fut, err := m.acks.Register(ref)
	if err != nil {
		return err
	}

	frame := ws.Message{Type: typ, Payload: ws.GroupRequestPayload{GroupID: roomID, Ref: ref}}
	if err := m.write(conn, frame); err != nil {
		m.acks.Reject(ref, err)
		return fmt.Errorf("live: send %s: %w", typ, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.AckTimeout)
	defer cancel()

	if _, err := fut.Wait(ctx); err != nil {
		m.acks.Reject(ref, err)
		return fmt.Errorf("live: %s %s: %w", typ, roomID, err)
	}
	return nil
}

func (m *Manager) readLoop(conn *websocket.Conn) error {
	conn.SetReadLimit(1 << 20)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env ws.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			m.log.Debug("live: bad frame", "err", err)
			continue
		}
		m.dispatch(env)
	}
}

func (m *Manager) dispatch(env ws.Envelope) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()

	switch env.Type {
	case ws.TypeAck:
		var p ws.AckPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if p.OK {
			m.acks.Resolve(p.Ref, struct{}{})
		} else {
			m.acks.Reject(p.Ref, fmt.Errorf("%w: %s", ErrJoinRejected, p.Error))
		}

	case ws.TypeReceiveMessage:
		var p ws.ChatMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			m.log.Debug("live: bad message payload", "err", err)
			return
		}
		if h != nil {
			h.OnMessage(model.Message{
				ID:         p.ID,
				RoomID:     p.RoomID,
				SenderID:   p.UserID,
				SenderName: p.UserName,
				Content:    p.Content,
				CreatedAt:  p.CreatedAt,
				ModifiedAt: p.ModifiedAt,
			})
		}

	case ws.TypeGroupAdded:
		var p ws.GroupAddedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if h != nil {
			h.OnGroupAdded(model.Room{ID: p.GroupID, Name: p.GroupName})
		}

	default:
		m.log.Debug("live: unhandled frame", "type", env.Type)
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	hdr := http.Header{}
	if m.cfg.Token != "" {
		hdr.Set("Authorization", "Bearer "+m.cfg.Token)
	}
	conn, resp, err := m.dialer.DialContext(ctx, m.cfg.URL, hdr)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (m *Manager) write(conn *websocket.Conn, msg ws.Message) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
	return conn.WriteJSON(msg)
}

func (m *Manager) currentConn() *websocket.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

func (m *Manager) setConn(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = conn
}

func (m *Manager) clearConn(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == conn {
		m.conn = nil
	}
}

// jitter: +-20% от d
func jitter(d time.Duration) time.Duration {
	delta := time.Duration(rand.Int63n(int64(d)/5 + 1))
	if rand.Intn(2) == 0 {
		return d - delta
	}
	return d + delta
}
