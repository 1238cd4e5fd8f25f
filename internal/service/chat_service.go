package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/fanout"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

const DefaultMaxMessageLength = 4000

type ChatService struct {
	messages MessageStore
	members  MemberStore
	users    UserStore
	pub      Publisher
	log      *slog.Logger

	maxLen int
	now    func() time.Time
}

func NewChatService(messages MessageStore, members MemberStore, users UserStore, pub Publisher, log *slog.Logger) *ChatService {
	return &ChatService{
		messages: messages,
		members:  members,
		users:    users,
		pub:      pub,
		log:      logger.Component(log, "chat"),
		maxLen:   DefaultMaxMessageLength,
		now:      time.Now,
	}
}

func (s *ChatService) SetMaxMessageLength(n int) {
	if n > 0 {
		s.maxLen = n
	}
}

// Send сохраняет сообщение и рассылает его участникам группы.
// ID клиента сохраняется, если это валидный UUID: повторная отправка
// того же сообщения вернёт уже сохранённую копию и не будет разослана второй раз.
func (s *ChatService) Send(ctx context.Context, msg domain.ChatMessage) (*domain.ChatMessage, error) {
	msg.Content = strings.TrimSpace(msg.Content)
	if msg.Content == "" || msg.GroupID == "" {
		return nil, domain.ErrInvalidInput
	}
	if utf8.RuneCountInString(msg.Content) > s.maxLen {
		return nil, domain.ErrMessageTooLong
	}

	if err := s.requireMember(ctx, msg.GroupID, msg.UserID); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(msg.ID); err != nil {
		msg.ID = uuid.NewString()
	}
	if msg.UserName == "" {
		msg.UserName = s.displayName(ctx, msg.UserID)
	}
	msg.CreatedAt = s.now().UTC()
	msg.ModifiedAt = nil

	stored, created, err := s.save(ctx, &msg)
	if errors.Is(err, domain.ErrMessageIDTaken) {
		// id уже занят чужим сообщением: сохраняем под новым
		s.log.Warn("chat: message id taken, reassigned", "group_id", msg.GroupID, "user_id", msg.UserID, "msg_id", msg.ID)
		msg.ID = uuid.NewString()
		stored, created, err = s.save(ctx, &msg)
	}
	if err != nil {
		return nil, fmt.Errorf("messages.Save: %w", err)
	}
	if !created {
		metrics.MessagesDeduplicated.Inc()
		return stored, nil
	}
	metrics.MessagesSent.Inc()

	ev := fanout.Event{Kind: fanout.KindMessage, GroupID: stored.GroupID, Message: stored}
	if err := s.pub.Publish(ctx, ev); err != nil {
		metrics.FanoutPublishErrors.WithLabelValues(string(ev.Kind)).Inc()
		s.log.Error("chat: publish failed", "group_id", stored.GroupID, "msg_id", stored.ID, "err", err)
	}
	return stored, nil
}

// save не отдаёт чужую копию, даже если хранилище нашло её по id.
func (s *ChatService) save(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, bool, error) {
	stored, created, err := s.messages.Save(ctx, msg)
	if err != nil {
		return nil, false, err
	}
	if !created && (stored.GroupID != msg.GroupID || stored.UserID != msg.UserID) {
		return nil, false, domain.ErrMessageIDTaken
	}
	return stored, created, nil
}

// History - страница истории от новых к старым, только для участников.
func (s *ChatService) History(ctx context.Context, groupID string, userID int64, before string, limit int) ([]domain.ChatMessage, string, error) {
	if groupID == "" {
		return nil, "", domain.ErrInvalidInput
	}
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, "", err
	}
	return s.messages.History(ctx, groupID, before, limit)
}

func (s *ChatService) requireMember(ctx context.Context, groupID string, userID int64) error {
	ok, err := s.members.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotMember
	}
	return nil
}

func (s *ChatService) displayName(ctx context.Context, userID int64) string {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn("chat: user lookup failed", "user_id", userID, "err", err)
		}
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
