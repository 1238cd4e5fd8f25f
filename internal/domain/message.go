package domain

import "time"

type ChatMessage struct {
	ID         string     `db:"id"`
	GroupID    string     `db:"group_id"`
	UserID     int64      `db:"user_id"`
	UserName   string     `db:"user_name"`
	Content    string     `db:"content"`
	CreatedAt  time.Time  `db:"created_at"`
	ModifiedAt *time.Time `db:"modified_at"`
}
