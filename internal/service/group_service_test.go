package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/fanout"
)

func newGroups() (*GroupService, *fakeMembers, *recordingPublisher) {
	mem := newFakeMembers()
	groups := &fakeGroups{groups: make(map[string]domain.Group), mem: mem}
	pub := &recordingPublisher{}
	return NewGroupService(groups, mem, pub, nil), mem, pub
}

func TestGroupService_Create(t *testing.T) {
	s, mem, _ := newGroups()

	g, err := s.Create(context.Background(), "  team  ", 1)
	require.NoError(t, err)
	assert.Equal(t, "team", g.Name)
	assert.NotEmpty(t, g.ID)
	assert.True(t, mem.has(g.ID, 1), "creator joins the group")

	_, err = s.Create(context.Background(), " ", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGroupService_AddMember(t *testing.T) {
	s, mem, pub := newGroups()
	g, err := s.Create(context.Background(), "team", 1)
	require.NoError(t, err)

	require.NoError(t, s.AddMember(context.Background(), g.ID, 1, 2))
	assert.True(t, mem.has(g.ID, 2))

	require.Len(t, pub.events, 1)
	assert.Equal(t, fanout.Event{Kind: fanout.KindGroupAdded, GroupID: g.ID, GroupName: "team", UserID: 2}, pub.events[0])

	err = s.AddMember(context.Background(), g.ID, 1, 2)
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)
	assert.Len(t, pub.events, 1)
}

func TestGroupService_AddMember_Errors(t *testing.T) {
	s, _, _ := newGroups()
	g, err := s.Create(context.Background(), "team", 1)
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddMember(context.Background(), g.ID, 5, 2), domain.ErrNotMember)
	assert.ErrorIs(t, s.AddMember(context.Background(), "missing", 1, 2), domain.ErrGroupNotFound)
}

func TestGroupService_UserGroups(t *testing.T) {
	s, _, _ := newGroups()
	a, err := s.Create(context.Background(), "a", 1)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), "b", 2)
	require.NoError(t, err)

	got, err := s.UserGroups(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	ok, err := s.IsMember(context.Background(), a.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.IsMember(context.Background(), "", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUserService_Search(t *testing.T) {
	users := &fakeUsers{users: []domain.User{{ID: 1, DisplayName: "Ann"}}}
	s := NewUserService(users)

	got, err := s.Search(context.Background(), "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	got, err = s.Search(context.Background(), "an", 1000)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, maxSearchLimit, users.limit)

	_, err = s.Search(context.Background(), "an", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultSearchLimit, users.limit)
}
