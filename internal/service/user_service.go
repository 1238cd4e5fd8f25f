package service

import (
	"context"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Search ищет по подстроке имени или email. Пустой запрос - пустой результат.
func (s *UserService) Search(ctx context.Context, substring string, limit int) ([]domain.User, error) {
	substring = strings.TrimSpace(substring)
	if substring == "" {
		return []domain.User{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	users, err := s.users.Search(ctx, substring, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}
