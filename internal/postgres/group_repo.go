package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type GroupRepository struct {
	db txBeginner
}

func NewGroupRepository(db *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create создаёт группу и делает создателя её участником в одной транзакции.
func (r *GroupRepository) Create(ctx context.Context, g *domain.Group) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, qInsertGroup, g.Name, g.CreatedBy).Scan(&g.ID, &g.CreatedAt); err != nil {
		return mapPgError(err)
	}
	if _, err := tx.Exec(ctx, qInsertMember, g.ID, g.CreatedBy); err != nil {
		return mapPgError(err)
	}

	return tx.Commit(ctx)
}

func (r *GroupRepository) Get(ctx context.Context, id string) (*domain.Group, error) {
	var g domain.Group
	err := r.db.QueryRow(ctx, qGetGroup, id).Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, mapPgError(err)
	}
	return &g, nil
}

func (r *GroupRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Group, error) {
	rows, err := r.db.Query(ctx, qGroupsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
