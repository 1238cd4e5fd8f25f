package wire

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestChatMessage_KnownBytes(t *testing.T) {
	m := ChatMessage{ID: "a", CreatedAt: 100}
	assert.Equal(t, []byte{0x0a, 0x01, 'a', 0x28, 0x64}, Marshal(&m))
}

func TestChatMessage_SkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "m1")
	b = protowire.AppendTag(b, 42, protowire.BytesType)
	b = protowire.AppendString(b, "future field")
	b = protowire.AppendTag(b, 43, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 7)
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, 1700000000000)

	var m ChatMessage
	require.NoError(t, m.UnmarshalWire(b))
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, int64(1700000000000), m.CreatedAt)
}

func TestChatMessage_Truncated(t *testing.T) {
	full := Marshal(&ChatMessage{ID: "message-id", Content: "hello"})

	var m ChatMessage
	err := m.UnmarshalWire(full[:len(full)-2])
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_BadBase64(t *testing.T) {
	var m ChatMessage
	assert.ErrorIs(t, Decode("%%%not-base64", &m), ErrMalformed)
}

func TestHistoryResponse_Nested(t *testing.T) {
	in := GetMessagesResponse{
		Messages: []ChatMessage{
			{ID: "m2", RoomID: "g", UserID: "1", Content: "second", CreatedAt: 200, UserName: "bob"},
			{ID: "m1", RoomID: "g", UserID: "2", Content: "first", CreatedAt: 100, UserName: "amy", ModifiedAt: 150},
		},
		NextCursor: "cursor",
	}

	var out GetMessagesResponse
	require.NoError(t, Decode(Encode(&in), &out))
	assert.Equal(t, in, out)
}

func TestHistoryResponse_BrokenNestedMessage(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0x0a, 0x05, 'a'}) // строка короче заявленной

	var out GetMessagesResponse
	assert.ErrorIs(t, out.UnmarshalWire(b), ErrMalformed)
}

func TestEmptyPayloads(t *testing.T) {
	var groups GetUserGroupsResponse
	require.NoError(t, Decode("", &groups))
	assert.Empty(t, groups.Groups)

	var created CreateGroupResponse
	require.NoError(t, Decode("", &created))
	assert.False(t, created.Success)
}

func TestEncode_StdBase64(t *testing.T) {
	s := Encode(&CreateGroupResponse{Success: true, GroupID: "g1"})
	raw, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x01, 0x12, 0x02, 'g', '1'}, raw)
}
