package ws

import (
	"sync"
)

type Conn interface {
	Send(msg Message) error
	Close() error
	UserID() int64
}

// Hub индексирует соединения по группам и по пользователям.
// Одно соединение может быть подписано на много групп.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[Conn]struct{} // groupID -> set of connections
	users  map[int64]map[Conn]struct{}  // userID -> set of connections
	joined map[Conn]map[string]struct{} // conn -> groups, для Unregister
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[Conn]struct{}),
		users:  make(map[int64]map[Conn]struct{}),
		joined: make(map[Conn]map[string]struct{}),
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	addTo(h.users, c.UserID(), c)
	if _, ok := h.joined[c]; !ok {
		h.joined[c] = make(map[string]struct{})
	}
}

// Unregister снимает соединение со всех групп.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for groupID := range h.joined[c] {
		removeFrom(h.groups, groupID, c)
	}
	delete(h.joined, c)
	removeFrom(h.users, c.UserID(), c)
}

// CloseAll закрывает все соединения. Shutdown у http.Server не трогает
// захваченные (hijacked) соединения, поэтому вызывается отдельно.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.joined))
	for c := range h.joined {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (h *Hub) Join(groupID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	gs, ok := h.joined[c]
	if !ok {
		// не зарегистрировано (уже закрыто) - не подписываем
		return
	}
	gs[groupID] = struct{}{}
	addTo(h.groups, groupID, c)
}

func (h *Hub) Leave(groupID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gs, ok := h.joined[c]; ok {
		delete(gs, groupID)
	}
	removeFrom(h.groups, groupID, c)
}

func (h *Hub) Broadcast(groupID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[groupID] {
		_ = c.Send(msg) // best-effort
	}
}

func (h *Hub) SendToUser(userID int64, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.users[userID] {
		_ = c.Send(msg)
	}
}

func (h *Hub) GroupSize(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[groupID])
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.joined)
}

func addTo[K comparable](idx map[K]map[Conn]struct{}, key K, c Conn) {
	set, ok := idx[key]
	if !ok {
		set = make(map[Conn]struct{})
		idx[key] = set
	}
	set[c] = struct{}{}
}

func removeFrom[K comparable](idx map[K]map[Conn]struct{}, key K, c Conn) {
	if set, ok := idx[key]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(idx, key)
		}
	}
}
