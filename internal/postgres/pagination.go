package postgres

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor - позиция в истории группы: последний отданный (created_at, id).
// Время хранится в микросекундах, как в timestamptz.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

type cursorJSON struct {
	T int64  `json:"t"`
	I string `json:"i"`
}

func cursorAfter(m domain.ChatMessage) Cursor {
	return Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

func EncodeCursor(c Cursor) (string, error) {
	data, err := json.Marshal(cursorJSON{T: c.CreatedAt.UnixMicro(), I: c.ID})
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor: "" - первая страница (nil, nil).
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrInvalidCursor, err)
	}
	var raw cursorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidCursor, err)
	}
	if raw.T <= 0 {
		return nil, fmt.Errorf("%w: missing time", ErrInvalidCursor)
	}
	// id уходит в запрос как uuid, битый id не должен доходить до БД
	if _, err := uuid.Parse(raw.I); err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidCursor, err)
	}
	return &Cursor{CreatedAt: time.UnixMicro(raw.T).UTC(), ID: raw.I}, nil
}
