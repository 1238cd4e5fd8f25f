package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/chat-service/internal/client/model"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
)

type recHandler struct {
	mu          sync.Mutex
	messages    []model.Message
	rooms       []model.Room
	reconnected atomic.Int32
}

func (h *recHandler) OnMessage(m model.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m)
}

func (h *recHandler) OnGroupAdded(r model.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rooms = append(h.rooms, r)
}

func (h *recHandler) OnReconnected(context.Context) { h.reconnected.Add(1) }

func (h *recHandler) messageCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// fakeServer отвечает ack на join/leave; после первого join в "g1" шлёт сообщение.
type fakeServer struct {
	t          *testing.T
	joins      sync.Map // groupID -> *atomic.Int32
	conns      atomic.Int32
	dropFirst  bool
	authHeader atomic.Value
}

func (s *fakeServer) joinCount(id string) int32 {
	v, ok := s.joins.Load(id)
	if !ok {
		return 0
	}
	return v.(*atomic.Int32).Load()
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.authHeader.Store(r.Header.Get("Authorization"))
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	n := s.conns.Add(1)

	for {
		var env ws.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		var p ws.GroupRequestPayload
		_ = json.Unmarshal(env.Payload, &p)

		if env.Type == ws.TypeJoinGroup && p.GroupID == "forbidden" {
			_ = conn.WriteJSON(ws.Message{Type: ws.TypeAck, Payload: ws.AckPayload{Ref: p.Ref, Error: "not a member"}})
			continue
		}
		_ = conn.WriteJSON(ws.Message{Type: ws.TypeAck, Payload: ws.AckPayload{Ref: p.Ref, OK: true}})

		if env.Type != ws.TypeJoinGroup {
			continue
		}
		v, _ := s.joins.LoadOrStore(p.GroupID, new(atomic.Int32))
		v.(*atomic.Int32).Add(1)

		_ = conn.WriteJSON(ws.Message{Type: ws.TypeReceiveMessage, Payload: ws.ChatMessagePayload{
			ID: "m-" + p.GroupID, RoomID: p.GroupID, UserID: "2", UserName: "bob", Content: "hi", CreatedAt: 100,
		}})
		_ = conn.WriteJSON(ws.Message{Type: ws.TypeGroupAdded, Payload: ws.GroupAddedPayload{GroupID: "g2", GroupName: "new"}})

		if s.dropFirst && n == 1 {
			return // обрыв соединения после первого join
		}
	}
}

func startManager(t *testing.T, srv *fakeServer) (*Manager, *recHandler) {
	t.Helper()
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	h := &recHandler{}
	m := NewManager(Config{
		URL:            "ws" + strings.TrimPrefix(hs.URL, "http"),
		Token:          "tok",
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		AckTimeout:     time.Second,
	}, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, m.Connected, 2*time.Second, 5*time.Millisecond)
	return m, h
}

func TestJoinRoom_AckAndEvents(t *testing.T) {
	srv := &fakeServer{t: t}
	m, h := startManager(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.JoinRoom(ctx, "g1"))

	require.Eventually(t, func() bool { return h.messageCount() == 1 }, time.Second, 5*time.Millisecond)
	h.mu.Lock()
	assert.Equal(t, "m-g1", h.messages[0].ID)
	assert.Equal(t, "bob", h.messages[0].SenderName)
	h.mu.Unlock()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.rooms) == 1 && h.rooms[0].ID == "g2"
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "Bearer tok", srv.authHeader.Load())
	assert.True(t, m.Connected())
}

func TestJoinRoom_Rejected(t *testing.T) {
	m, _ := startManager(t, &fakeServer{t: t})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := m.JoinRoom(ctx, "forbidden")
	assert.ErrorIs(t, err, ErrJoinRejected)
	assert.NotContains(t, m.Rooms(), "forbidden")
}

func TestReconnect_ResubscribesRooms(t *testing.T) {
	srv := &fakeServer{t: t, dropFirst: true}
	m, h := startManager(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.JoinRoom(ctx, "g1"))

	require.Eventually(t, func() bool { return h.reconnected.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), srv.joinCount("g1"))
	assert.GreaterOrEqual(t, srv.conns.Load(), int32(2))
}

func TestJoinRoom_NotConnectedFailsFast(t *testing.T) {
	m := NewManager(Config{URL: "ws://127.0.0.1:1/ws"}, &recHandler{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	assert.ErrorIs(t, m.JoinRoom(ctx, "g1"), ErrNotConnected)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"g1"}, m.Rooms())
}

func TestJoinRoom_DeferredUntilFirstConnect(t *testing.T) {
	srv := &fakeServer{t: t}
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	h := &recHandler{}
	m := NewManager(Config{URL: "ws" + strings.TrimPrefix(hs.URL, "http"), AckTimeout: time.Second}, h, nil)
	require.ErrorIs(t, m.JoinRoom(context.Background(), "g1"), ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return srv.joinCount("g1") == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.reconnected.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}
