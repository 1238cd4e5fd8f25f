// Package fanout разносит события чата между инстансами сервиса.
package fanout

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type Kind string

const (
	KindMessage    Kind = "message"     // новое сообщение в группе
	KindGroupAdded Kind = "group_added" // пользователя добавили в группу
)

type Event struct {
	Kind      Kind                `json:"kind"`
	GroupID   string              `json:"group_id"`
	GroupName string              `json:"group_name,omitempty"`
	UserID    int64               `json:"user_id,omitempty"` // адресат group_added
	Message   *domain.ChatMessage `json:"message,omitempty"`
}

type Handler func(Event)

type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe блокируется до отмены ctx, вызывая h на каждое событие.
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}
