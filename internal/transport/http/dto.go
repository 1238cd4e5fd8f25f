package http

import (
	"strconv"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
)

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type CreateGroupResponse struct {
	Success bool   `json:"success"`
	GroupID string `json:"group_id,omitempty"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

type AddMemberResponse struct {
	Success bool `json:"success"`
}

type GroupItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type GroupsResponse struct {
	Groups []GroupItem `json:"groups"`
}

type PostMessageRequest struct {
	ID      string `json:"id"` // клиентский UUID, сохраняется как id сообщения
	Content string `json:"content"`
}

type HistoryResponse struct {
	Messages   []ws.ChatMessagePayload `json:"messages"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

type UserItem struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type UsersResponse struct {
	Users []UserItem `json:"users"`
}

func mapGroups(gs []domain.Group) GroupsResponse {
	out := GroupsResponse{Groups: make([]GroupItem, 0, len(gs))}
	for _, g := range gs {
		out.Groups = append(out.Groups, GroupItem{ID: g.ID, Name: g.Name})
	}
	return out
}

func mapHistory(ms []domain.ChatMessage, next string) HistoryResponse {
	out := HistoryResponse{Messages: make([]ws.ChatMessagePayload, 0, len(ms)), NextCursor: next}
	for i := range ms {
		out.Messages = append(out.Messages, ws.MessagePayload(&ms[i]))
	}
	return out
}

func mapUsers(us []domain.User) UsersResponse {
	out := UsersResponse{Users: make([]UserItem, 0, len(us))}
	for _, u := range us {
		out.Users = append(out.Users, UserItem{
			ID:          strconv.FormatInt(u.ID, 10),
			DisplayName: u.DisplayName,
			Email:       u.Email,
		})
	}
	return out
}
