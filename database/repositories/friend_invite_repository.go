package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/seralyne/cardex/database/models"
)

type FriendInviteRepository interface {
	Create(ctx context.Context, invite *models.FriendInvite) error
	GetByID(ctx context.Context, id int64) (*models.FriendInvite, error)
	GetUserInvites(ctx context.Context, userID string) ([]*models.FriendInvite, error)
	PendingExists(ctx context.Context, fromID, toID string) (bool, error)
	Finish(ctx context.Context, id int64, status models.RequestStatus, tradeID int64, roomCode string) (bool, error)
}

type friendInviteRepository struct {
	db *bun.DB
}

func NewFriendInviteRepository(db *bun.DB) FriendInviteRepository {
	return &friendInviteRepository{db: db}
}

func (r *friendInviteRepository) Create(ctx context.Context, invite *models.FriendInvite) error {
	invite.CreatedAt = time.Now()
	invite.UpdatedAt = time.Now()
	invite.Status = models.RequestPending

	_, err := r.db.NewInsert().Model(invite).Exec(ctx)
	if isUniqueViolation(err) {
		return ErrDuplicatePending
	}
	if err != nil {
		return fmt.Errorf("failed to create friend invite: %w", err)
	}
	return nil
}

func (r *friendInviteRepository) GetByID(ctx context.Context, id int64) (*models.FriendInvite, error) {
	invite := new(models.FriendInvite)
	err := r.db.NewSelect().
		Model(invite).
		Where("fi.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friend invite: %w", err)
	}
	return invite, nil
}

func (r *friendInviteRepository) GetUserInvites(ctx context.Context, userID string) ([]*models.FriendInvite, error) {
	var invites []*models.FriendInvite
	err := r.db.NewSelect().
		Model(&invites).
		Where("from_id = ? OR to_id = ?", userID, userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get invites: %w", err)
	}
	return invites, nil
}

func (r *friendInviteRepository) PendingExists(ctx context.Context, fromID, toID string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.FriendInvite)(nil)).
		Where("from_id = ? AND to_id = ? AND status = ?", fromID, toID, models.RequestPending).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check pending invite: %w", err)
	}
	return exists, nil
}

func (r *friendInviteRepository) Finish(ctx context.Context, id int64, status models.RequestStatus, tradeID int64, roomCode string) (bool, error) {
	q := r.db.NewUpdate().
		Model((*models.FriendInvite)(nil)).
		Set("status = ?", status).
		Set("finished_at = ?", time.Now()).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", id, models.RequestPending)

	if tradeID != 0 {
		q = q.Set("trade_id = ?", tradeID)
	}
	if roomCode != "" {
		q = q.Set("room_code = ?", roomCode)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to finish friend invite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}
