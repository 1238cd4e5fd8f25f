package wire

import "google.golang.org/protobuf/encoding/protowire"

// ChatMessage - сообщение чата. CreatedAt/ModifiedAt в epoch-ms.
type ChatMessage struct {
	ID         string
	RoomID     string
	UserID     string
	Content    string
	CreatedAt  int64
	UserName   string
	ModifiedAt int64
}

func (m *ChatMessage) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.ID)
	b = appendString(b, 2, m.RoomID)
	b = appendString(b, 3, m.UserID)
	b = appendString(b, 4, m.Content)
	b = appendInt64(b, 5, m.CreatedAt)
	b = appendString(b, 6, m.UserName)
	b = appendInt64(b, 7, m.ModifiedAt)
	return b
}

func (m *ChatMessage) UnmarshalWire(b []byte) error {
	*m = ChatMessage{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return readString(typ, v, &m.ID)
		case 2:
			return readString(typ, v, &m.RoomID)
		case 3:
			return readString(typ, v, &m.UserID)
		case 4:
			return readString(typ, v, &m.Content)
		case 5:
			return readInt64(typ, v, &m.CreatedAt)
		case 6:
			return readString(typ, v, &m.UserName)
		case 7:
			return readInt64(typ, v, &m.ModifiedAt)
		}
		return 0
	})
}

type GroupInfo struct {
	ID        string
	GroupName string
}

func (m *GroupInfo) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.ID)
	return appendString(b, 2, m.GroupName)
}

func (m *GroupInfo) UnmarshalWire(b []byte) error {
	*m = GroupInfo{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return readString(typ, v, &m.ID)
		case 2:
			return readString(typ, v, &m.GroupName)
		}
		return 0
	})
}

// GetMessagesRequest - запрос страницы истории; Before - курсор, пустой = с самого нового.
type GetMessagesRequest struct {
	GroupID string
	Before  string
	Limit   int64
}

func (m *GetMessagesRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.GroupID)
	b = appendString(b, 2, m.Before)
	return appendInt64(b, 3, m.Limit)
}

func (m *GetMessagesRequest) UnmarshalWire(b []byte) error {
	*m = GetMessagesRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return readString(typ, v, &m.GroupID)
		case 2:
			return readString(typ, v, &m.Before)
		case 3:
			return readInt64(typ, v, &m.Limit)
		}
		return 0
	})
}

// GetMessagesResponse - страница истории, от новых к старым.
type GetMessagesResponse struct {
	Messages   []ChatMessage
	NextCursor string
}

func (m *GetMessagesResponse) AppendWire(b []byte) []byte {
	for i := range m.Messages {
		b = appendEmbedded(b, 1, &m.Messages[i])
	}
	return appendString(b, 2, m.NextCursor)
}

func (m *GetMessagesResponse) UnmarshalWire(b []byte) error {
	*m = GetMessagesResponse{}
	var inner error
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			var msg ChatMessage
			n := readEmbedded(typ, v, &msg, &inner)
			if n > 0 {
				m.Messages = append(m.Messages, msg)
			}
			return n
		case 2:
			return readString(typ, v, &m.NextCursor)
		}
		return 0
	})
	if err != nil {
		return err
	}
	return inner
}

type GetUserGroupsRequest struct {
	UserID string
}

func (m *GetUserGroupsRequest) AppendWire(b []byte) []byte {
	return appendString(b, 1, m.UserID)
}

func (m *GetUserGroupsRequest) UnmarshalWire(b []byte) error {
	*m = GetUserGroupsRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return readString(typ, v, &m.UserID)
		}
		return 0
	})
}

type GetUserGroupsResponse struct {
	Groups []GroupInfo
}

func (m *GetUserGroupsResponse) AppendWire(b []byte) []byte {
	for i := range m.Groups {
		b = appendEmbedded(b, 1, &m.Groups[i])
	}
	return b
}

func (m *GetUserGroupsResponse) UnmarshalWire(b []byte) error {
	*m = GetUserGroupsResponse{}
	var inner error
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num != 1 {
			return 0
		}
		var g GroupInfo
		n := readEmbedded(typ, v, &g, &inner)
		if n > 0 {
			m.Groups = append(m.Groups, g)
		}
		return n
	})
	if err != nil {
		return err
	}
	return inner
}

type UserInfo struct {
	ID          string
	DisplayName string
	Email       string
}

func (m *UserInfo) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.ID)
	b = appendString(b, 2, m.DisplayName)
	return appendString(b, 3, m.Email)
}

func (m *UserInfo) UnmarshalWire(b []byte) error {
	*m = UserInfo{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return readString(typ, v, &m.ID)
		case 2:
			return readString(typ, v, &m.DisplayName)
		case 3:
			return readString(typ, v, &m.Email)
		}
		return 0
	})
}

type SearchUsersResponse struct {
	Users []UserInfo
}

func (m *SearchUsersResponse) AppendWire(b []byte) []byte {
	for i := range m.Users {
		b = appendEmbedded(b, 1, &m.Users[i])
	}
	return b
}

func (m *SearchUsersResponse) UnmarshalWire(b []byte) error {
	*m = SearchUsersResponse{}
	var inner error
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num != 1 {
			return 0
		}
		var u UserInfo
		n := readEmbedded(typ, v, &u, &inner)
		if n > 0 {
			m.Users = append(m.Users, u)
		}
		return n
	})
	if err != nil {
		return err
	}
	return inner
}

type CreateGroupResponse struct {
	Success bool
	GroupID string
}

func (m *CreateGroupResponse) AppendWire(b []byte) []byte {
	b = appendBool(b, 1, m.Success)
	return appendString(b, 2, m.GroupID)
}

func (m *CreateGroupResponse) UnmarshalWire(b []byte) error {
	*m = CreateGroupResponse{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return readBool(typ, v, &m.Success)
		case 2:
			return readString(typ, v, &m.GroupID)
		}
		return 0
	})
}

type AddUserToGroupResponse struct {
	Success bool
}

func (m *AddUserToGroupResponse) AppendWire(b []byte) []byte {
	return appendBool(b, 1, m.Success)
}

func (m *AddUserToGroupResponse) UnmarshalWire(b []byte) error {
	*m = AddUserToGroupResponse{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return readBool(typ, v, &m.Success)
		}
		return 0
	})
}
