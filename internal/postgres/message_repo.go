package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type MessageRepository struct {
	db querier
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Save - идемпотентная вставка по ID. Повтор с тем же ID от того же
// отправителя в ту же группу возвращает сохранённую копию и created=false.
// Чужой ID -> domain.ErrMessageIDTaken.
func (r *MessageRepository) Save(ctx context.Context, m *domain.ChatMessage) (*domain.ChatMessage, bool, error) {
	cmd, err := r.db.Exec(ctx, qInsertMessage, m.ID, m.GroupID, m.UserID, m.UserName, m.Content, m.CreatedAt)
	if err != nil {
		return nil, false, mapPgError(err)
	}
	if cmd.RowsAffected() == 1 {
		return m, true, nil
	}

	stored, err := scanMessage(r.db.QueryRow(ctx, qGetOwnMessage, m.ID, m.GroupID, m.UserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, domain.ErrMessageIDTaken
	}
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

// History возвращает историю группы с курсорной пагинацией (created_at,id DESC).
func (r *MessageRepository) History(ctx context.Context, groupID, before string, limit int) ([]domain.ChatMessage, string, error) {
	limit = clampLimit(limit)

	cur, err := DecodeCursor(before)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	var createdAt, id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, qHistory, groupID, createdAt, id, limit)
	if err != nil {
		return nil, "", mapPgError(err)
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		if c, e := EncodeCursor(cursorAfter(out[len(out)-1])); e == nil {
			next = c
		}
	}
	return out, next, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func scanMessage(row pgx.Row) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	if err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &m.UserName, &m.Content, &m.CreatedAt, &m.ModifiedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
