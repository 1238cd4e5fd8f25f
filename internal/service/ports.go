package service

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/fanout"
)

// Хранилища, которыми пользуются сервисы. Реализации - internal/postgres.

type MessageStore interface {
	Save(ctx context.Context, m *domain.ChatMessage) (*domain.ChatMessage, bool, error)
	History(ctx context.Context, groupID, before string, limit int) ([]domain.ChatMessage, string, error)
}

type GroupStore interface {
	Create(ctx context.Context, g *domain.Group) error
	Get(ctx context.Context, id string) (*domain.Group, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Group, error)
}

type MemberStore interface {
	Add(ctx context.Context, groupID string, userID int64) (bool, error)
	IsMember(ctx context.Context, groupID string, userID int64) (bool, error)
}

type UserStore interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	Search(ctx context.Context, substring string, limit int) ([]domain.User, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev fanout.Event) error
}
