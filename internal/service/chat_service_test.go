package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/fanout"
)

const testGroup = "7d8f3c9e-1111-4a2b-9c3d-000000000001"

func newChat(t *testing.T) (*ChatService, *fakeMessages, *fakeMembers, *recordingPublisher) {
	t.Helper()
	msgs := newFakeMessages()
	mem := newFakeMembers()
	mem.set(testGroup, 1)
	pub := &recordingPublisher{}
	users := &fakeUsers{users: []domain.User{{ID: 1, Email: "ann@example.com", DisplayName: "Ann"}, {ID: 2, Email: "bob@example.com"}}}

	s := NewChatService(msgs, mem, users, pub, nil)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, msgs, mem, pub
}

func TestChatService_Send(t *testing.T) {
	s, _, _, pub := newChat(t)
	id := uuid.NewString()

	got, err := s.Send(context.Background(), domain.ChatMessage{ID: id, GroupID: testGroup, UserID: 1, Content: "  hi  "})
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, "Ann", got.UserName)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got.CreatedAt)

	require.Len(t, pub.events, 1)
	assert.Equal(t, fanout.KindMessage, pub.events[0].Kind)
	assert.Equal(t, testGroup, pub.events[0].GroupID)
	assert.Equal(t, id, pub.events[0].Message.ID)
}

func TestChatService_Send_ResendIsIdempotent(t *testing.T) {
	s, _, _, pub := newChat(t)
	msg := domain.ChatMessage{ID: uuid.NewString(), GroupID: testGroup, UserID: 1, Content: "once"}

	first, err := s.Send(context.Background(), msg)
	require.NoError(t, err)
	second, err := s.Send(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, pub.events, 1)
}

func TestChatService_Send_ReplacesNonUUIDID(t *testing.T) {
	s, _, _, _ := newChat(t)

	got, err := s.Send(context.Background(), domain.ChatMessage{ID: "local-1", GroupID: testGroup, UserID: 1, Content: "x"})
	require.NoError(t, err)

	_, perr := uuid.Parse(got.ID)
	assert.NoError(t, perr)
}

func TestChatService_Send_FallsBackToEmail(t *testing.T) {
	s, _, mem, _ := newChat(t)
	mem.set(testGroup, 2)

	got, err := s.Send(context.Background(), domain.ChatMessage{GroupID: testGroup, UserID: 2, Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.UserName)
}

func TestChatService_Send_Validation(t *testing.T) {
	s, _, _, pub := newChat(t)
	s.SetMaxMessageLength(5)

	cases := []struct {
		name string
		msg  domain.ChatMessage
		want error
	}{
		{"empty", domain.ChatMessage{GroupID: testGroup, UserID: 1, Content: "   "}, domain.ErrInvalidInput},
		{"no group", domain.ChatMessage{UserID: 1, Content: "x"}, domain.ErrInvalidInput},
		{"too long", domain.ChatMessage{GroupID: testGroup, UserID: 1, Content: strings.Repeat("я", 6)}, domain.ErrMessageTooLong},
		{"not member", domain.ChatMessage{GroupID: testGroup, UserID: 9, Content: "x"}, domain.ErrNotMember},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Send(context.Background(), tc.msg)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, pub.events)
}

func TestChatService_Send_PublishFailureStillStores(t *testing.T) {
	s, msgs, _, pub := newChat(t)
	pub.err = errors.New("redis down")

	got, err := s.Send(context.Background(), domain.ChatMessage{GroupID: testGroup, UserID: 1, Content: "x"})
	require.NoError(t, err)
	assert.Contains(t, msgs.byID, got.ID)
}

func TestChatService_Send_StoreError(t *testing.T) {
	s, msgs, _, pub := newChat(t)
	msgs.err = errors.New("boom")

	_, err := s.Send(context.Background(), domain.ChatMessage{GroupID: testGroup, UserID: 1, Content: "x"})
	require.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestChatService_History_MembersOnly(t *testing.T) {
	s, _, _, _ := newChat(t)
	_, err := s.Send(context.Background(), domain.ChatMessage{GroupID: testGroup, UserID: 1, Content: "x"})
	require.NoError(t, err)

	got, _, err := s.History(context.Background(), testGroup, 1, "", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, _, err = s.History(context.Background(), testGroup, 42, "", 10)
	assert.ErrorIs(t, err, domain.ErrNotMember)
}

func TestChatService_Send_ForeignIDIsReassigned(t *testing.T) {
	s, msgs, mem, pub := newChat(t)
	const otherGroup = "7d8f3c9e-1111-4a2b-9c3d-000000000002"
	mem.set(otherGroup, 2)
	id := uuid.NewString()

	_, err := s.Send(context.Background(), domain.ChatMessage{ID: id, GroupID: testGroup, UserID: 1, Content: "top secret"})
	require.NoError(t, err)

	got, err := s.Send(context.Background(), domain.ChatMessage{ID: id, GroupID: otherGroup, UserID: 2, Content: "hello"})
	require.NoError(t, err)

	assert.NotEqual(t, id, got.ID)
	assert.Equal(t, otherGroup, got.GroupID)
	assert.Equal(t, int64(2), got.UserID)
	assert.Equal(t, "hello", got.Content)

	assert.Equal(t, "top secret", msgs.byID[id].Content)
	assert.Equal(t, "hello", msgs.byID[got.ID].Content)
	require.Len(t, pub.events, 2)
	assert.Equal(t, otherGroup, pub.events[1].GroupID)
}

func TestChatService_Send_SameIDOtherSenderSameGroup(t *testing.T) {
	s, _, mem, _ := newChat(t)
	mem.set(testGroup, 2)
	id := uuid.NewString()

	_, err := s.Send(context.Background(), domain.ChatMessage{ID: id, GroupID: testGroup, UserID: 1, Content: "mine"})
	require.NoError(t, err)

	got, err := s.Send(context.Background(), domain.ChatMessage{ID: id, GroupID: testGroup, UserID: 2, Content: "yours"})
	require.NoError(t, err)
	assert.NotEqual(t, id, got.ID)
	assert.Equal(t, "yours", got.Content)
}

// takenOnce отвечает как postgres-репозиторий на первый занятый id.
type takenOnce struct {
	*fakeMessages
	taken string
}

func (f *takenOnce) Save(ctx context.Context, m *domain.ChatMessage) (*domain.ChatMessage, bool, error) {
	if m.ID == f.taken {
		return nil, false, domain.ErrMessageIDTaken
	}
	return f.fakeMessages.Save(ctx, m)
}

func TestChatService_Send_StoreReportsTakenID(t *testing.T) {
	mem := newFakeMembers()
	mem.set(testGroup, 1)
	id := uuid.NewString()
	store := &takenOnce{fakeMessages: newFakeMessages(), taken: id}
	s := NewChatService(store, mem, &fakeUsers{}, &recordingPublisher{}, nil)

	got, err := s.Send(context.Background(), domain.ChatMessage{ID: id, GroupID: testGroup, UserID: 1, Content: "x"})
	require.NoError(t, err)
	assert.NotEqual(t, id, got.ID)
	assert.Contains(t, store.byID, got.ID)
}
