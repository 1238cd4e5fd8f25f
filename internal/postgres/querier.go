package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// querier - общее у *pgxpool.Pool и pgx.Tx: создание группы и вступление
// создателя идут одной транзакцией теми же методами репозитория.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type txBeginner interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			if pgErr.ConstraintName == "group_members_user_id_fkey" {
				return domain.ErrUserNotFound
			}
			return domain.ErrGroupNotFound
		case "23514", "22P02": // check_violation, invalid_text_representation (битый uuid)
			return domain.ErrInvalidInput
		}
	}
	return err
}
