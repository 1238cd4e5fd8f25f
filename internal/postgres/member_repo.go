package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type MemberRepository struct {
	db querier
}

func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

// Add возвращает false, если пользователь уже состоит в группе.
func (r *MemberRepository) Add(ctx context.Context, groupID string, userID int64) (bool, error) {
	cmd, err := r.db.Exec(ctx, qInsertMember, groupID, userID)
	if err != nil {
		return false, mapPgError(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *MemberRepository) IsMember(ctx context.Context, groupID string, userID int64) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, qIsMember, groupID, userID).Scan(&ok); err != nil {
		return false, mapPgError(err)
	}
	return ok, nil
}

func (r *MemberRepository) Remove(ctx context.Context, groupID string, userID int64) error {
	cmd, err := r.db.Exec(ctx, qDeleteMember, groupID, userID)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotMember
	}
	return nil
}
