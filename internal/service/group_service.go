package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/fanout"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

const maxGroupNameLength = 200

type GroupService struct {
	groups  GroupStore
	members MemberStore
	pub     Publisher
	log     *slog.Logger
}

func NewGroupService(groups GroupStore, members MemberStore, pub Publisher, log *slog.Logger) *GroupService {
	return &GroupService{
		groups:  groups,
		members: members,
		pub:     pub,
		log:     logger.Component(log, "groups"),
	}
}

// Create создаёт группу, создатель сразу становится участником.
func (s *GroupService) Create(ctx context.Context, name string, creatorID int64) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxGroupNameLength {
		return nil, domain.ErrInvalidInput
	}

	g := &domain.Group{Name: name, CreatedBy: creatorID}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("groups.Create: %w", err)
	}
	metrics.GroupsCreated.Inc()
	return g, nil
}

// AddMember добавляет userID в группу от имени actorID.
// Повторное добавление - domain.ErrAlreadyMember.
func (s *GroupService) AddMember(ctx context.Context, groupID string, actorID, userID int64) error {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}

	ok, err := s.members.IsMember(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotMember
	}

	added, err := s.members.Add(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !added {
		return domain.ErrAlreadyMember
	}

	ev := fanout.Event{Kind: fanout.KindGroupAdded, GroupID: g.ID, GroupName: g.Name, UserID: userID}
	if err := s.pub.Publish(ctx, ev); err != nil {
		metrics.FanoutPublishErrors.WithLabelValues(string(ev.Kind)).Inc()
		s.log.Error("groups: publish failed", "group_id", g.ID, "user_id", userID, "err", err)
	}
	return nil
}

func (s *GroupService) UserGroups(ctx context.Context, userID int64) ([]domain.Group, error) {
	return s.groups.ListByUser(ctx, userID)
}

func (s *GroupService) IsMember(ctx context.Context, groupID string, userID int64) (bool, error) {
	if groupID == "" {
		return false, domain.ErrInvalidInput
	}
	return s.members.IsMember(ctx, groupID, userID)
}
