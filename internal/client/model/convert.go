package model

import "github.com/cwrk-planet/chat-service/internal/wire"

func FromWire(m wire.ChatMessage) Message {
	return Message{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.UserID,
		SenderName: m.UserName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		ModifiedAt: m.ModifiedAt,
	}
}

func (m Message) ToWire() wire.ChatMessage {
	return wire.ChatMessage{
		ID:         m.ID,
		RoomID:     m.RoomID,
		UserID:     m.SenderID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		UserName:   m.SenderName,
		ModifiedAt: m.ModifiedAt,
	}
}

func RoomFromWire(g wire.GroupInfo) Room {
	return Room{ID: g.ID, Name: g.GroupName}
}
