package bridge

import (
	"context"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/client/model"
	"github.com/cwrk-planet/chat-service/internal/wire"
)

// HistoryPage - страница истории в порядке ответа (от новых к старым).
type HistoryPage struct {
	Messages   []model.Message
	NextCursor string
}

// PostMessage отправляет сообщение хосту без ожидания ответа.
func (b *Bridge) PostMessage(m model.Message) {
	w := m.ToWire()
	b.host.PostMessage(wire.Encode(&w))
}

func (b *Bridge) MessageHistory(ctx context.Context, req wire.GetMessagesRequest) HistoryPage {
	encoded := wire.Encode(&req)
	payload, err := b.call(ctx, func(id string) {
		b.host.RequestMessageHistory(encoded, id)
	})

	var resp wire.GetMessagesResponse
	if err == nil {
		err = wire.Decode(payload, &resp)
	}
	if err != nil {
		b.fail("message history", err,
			"Failed to get message history", "Failed to get message history for the current room!", true,
			"room_id", req.GroupID)
		return HistoryPage{}
	}

	page := HistoryPage{
		Messages:   make([]model.Message, 0, len(resp.Messages)),
		NextCursor: resp.NextCursor,
	}
	for _, m := range resp.Messages {
		page.Messages = append(page.Messages, model.FromWire(m))
	}
	return page
}

func (b *Bridge) UserGroups(ctx context.Context) []model.Room {
	payload, err := b.call(ctx, func(id string) {
		b.host.RequestUserGroups(id)
	})

	var resp wire.GetUserGroupsResponse
	if err == nil {
		err = wire.Decode(payload, &resp)
	}
	if err != nil {
		b.fail("user groups", err,
			"Failed to get your chat rooms", "The app couldn't get your chat rooms, are you connected and are the servers up?", false)
		return nil
	}

	rooms := make([]model.Room, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		rooms = append(rooms, model.RoomFromWire(g))
	}
	return rooms
}

// SearchUsers: пустая строка - пустой результат без обращения к хосту.
func (b *Bridge) SearchUsers(ctx context.Context, substring string) []model.User {
	if substring == "" {
		return []model.User{}
	}

	payload, err := b.call(ctx, func(id string) {
		b.host.SearchUsers(substring, id)
	})

	var resp wire.SearchUsersResponse
	if err == nil {
		err = wire.Decode(payload, &resp)
	}
	if err != nil {
		b.fail("search users", err,
			"Failed to search for users", "The app couldn't execute the search, are you connected and are the servers up?", true,
			"substring", substring)
		return []model.User{}
	}

	users := make([]model.User, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, model.User{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email})
	}
	return users
}

func (b *Bridge) CreateGroup(ctx context.Context, name string) model.CreatedGroup {
	if strings.TrimSpace(name) == "" {
		return model.CreatedGroup{}
	}

	payload, err := b.call(ctx, func(id string) {
		b.host.CreateGroup(name, id)
	})

	var resp wire.CreateGroupResponse
	if err == nil {
		err = wire.Decode(payload, &resp)
	}
	if err != nil {
		b.fail("create group", err,
			"Failed to add chat room", "The app couldn't add the chat room, are you connected and are the servers up?", true,
			"name", name)
		return model.CreatedGroup{}
	}
	return model.CreatedGroup{Success: resp.Success, GroupID: resp.GroupID}
}

// AddUserToGroup: ошибки только логируются, диалога нет.
func (b *Bridge) AddUserToGroup(ctx context.Context, userID, groupID string) bool {
	if userID == "" || groupID == "" {
		return false
	}

	payload, err := b.call(ctx, func(id string) {
		b.host.AddUserToGroup(userID, groupID, id)
	})

	var resp wire.AddUserToGroupResponse
	if err == nil {
		err = wire.Decode(payload, &resp)
	}
	if err != nil {
		b.fail("add user to group", err, "", "", false, "user_id", userID, "group_id", groupID)
		return false
	}
	return resp.Success
}
