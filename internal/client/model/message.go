package model

import "strings"

// Message - сообщение в таймлайне комнаты. CreatedAt/ModifiedAt в epoch-ms.
type Message struct {
	ID         string
	RoomID     string
	SenderID   string
	SenderName string
	Content    string
	CreatedAt  int64
	ModifiedAt int64 // 0 = не редактировалось
}

// Less задаёт порядок таймлайна: (CreatedAt, ID).
func Less(a, b Message) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

// Room - комната (группа) чата.
type Room struct {
	ID   string
	Name string
}

func (r Room) Valid() bool {
	return strings.TrimSpace(r.ID) != "" && strings.TrimSpace(r.Name) != ""
}

// Located - сообщение, дополненное данными комнаты, где оно найдено.
type Located struct {
	Message
	RoomName string
}

// User - результат поиска пользователей.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// CreatedGroup - результат создания группы.
type CreatedGroup struct {
	Success bool
	GroupID string
}
