package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/fanout"
)

type fakeMessages struct {
	mu   sync.Mutex
	byID map[string]domain.ChatMessage
	err  error
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{byID: make(map[string]domain.ChatMessage)}
}

func (f *fakeMessages) Save(_ context.Context, m *domain.ChatMessage) (*domain.ChatMessage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	if stored, ok := f.byID[m.ID]; ok {
		return &stored, false, nil
	}
	f.byID[m.ID] = *m
	return m, true, nil
}

func (f *fakeMessages) History(_ context.Context, groupID, _ string, limit int) ([]domain.ChatMessage, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range f.byID {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, "", nil
}

type fakeGroups struct {
	groups map[string]domain.Group
	mem    *fakeMembers
}

func (f *fakeGroups) Create(_ context.Context, g *domain.Group) error {
	g.ID = uuid.NewString()
	g.CreatedAt = time.Now()
	f.groups[g.ID] = *g
	f.mem.set(g.ID, g.CreatedBy)
	return nil
}

func (f *fakeGroups) Get(_ context.Context, id string) (*domain.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	return &g, nil
}

func (f *fakeGroups) ListByUser(_ context.Context, userID int64) ([]domain.Group, error) {
	var out []domain.Group
	for id, g := range f.groups {
		if f.mem.has(id, userID) {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakeMembers struct {
	mu      sync.Mutex
	members map[string]map[int64]bool
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{members: make(map[string]map[int64]bool)}
}

func (f *fakeMembers) set(groupID string, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[groupID] == nil {
		f.members[groupID] = make(map[int64]bool)
	}
	f.members[groupID][userID] = true
}

func (f *fakeMembers) has(groupID string, userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[groupID][userID]
}

func (f *fakeMembers) Add(_ context.Context, groupID string, userID int64) (bool, error) {
	if f.has(groupID, userID) {
		return false, nil
	}
	f.set(groupID, userID)
	return true, nil
}

func (f *fakeMembers) IsMember(_ context.Context, groupID string, userID int64) (bool, error) {
	return f.has(groupID, userID), nil
}

type fakeUsers struct {
	users []domain.User
	limit int
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) Search(_ context.Context, _ string, limit int) ([]domain.User, error) {
	f.limit = limit
	return f.users, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []fanout.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev fanout.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}
