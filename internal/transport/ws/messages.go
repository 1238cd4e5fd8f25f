package ws

import "encoding/json"

// Типы событий в WS
const (
	TypeJoinGroup      = "join_group"      // client -> server: подписка на группу
	TypeLeaveGroup     = "leave_group"     // client -> server: отписка
	TypeAck            = "ack"             // server -> client: ответ на join/leave по ref
	TypeReceiveMessage = "receive_message" // server -> client: новое сообщение в группе
	TypeGroupAdded     = "group_added"     // server -> client: пользователя добавили в группу
	TypeError          = "error"           // server -> client: кадр не разобран
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Envelope - входящий кадр; payload разбирается по Type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type GroupRequestPayload struct {
	GroupID string `json:"group_id"`
	Ref     string `json:"ref"`
}

// для client: снимает ожидание join/leave по ref
type AckPayload struct {
	Ref   string `json:"ref"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ChatMessagePayload - сообщение; времена в epoch-ms.
type ChatMessagePayload struct {
	ID         string `json:"id"`
	RoomID     string `json:"room_id"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"created_at"`
	ModifiedAt int64  `json:"modified_at,omitempty"`
}

type GroupAddedPayload struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
