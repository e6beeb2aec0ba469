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

type TradeRequestRepository interface {
	Create(ctx context.Context, req *models.TradeRequest) error
	GetByID(ctx context.Context, id int64) (*models.TradeRequest, error)
	GetInbox(ctx context.Context, userID string) ([]*models.TradeRequest, error)
	GetOutbox(ctx context.Context, userID string) ([]*models.TradeRequest, error)
	PendingExists(ctx context.Context, fromID, toID string, cardID int64) (bool, error)
	Finish(ctx context.Context, id int64, status models.RequestStatus, tradeID int64) (bool, error)
	MarkCompleted(ctx context.Context, id int64) (bool, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type tradeRequestRepository struct {
	db *bun.DB
}

func NewTradeRequestRepository(db *bun.DB) TradeRequestRepository {
	return &tradeRequestRepository{db: db}
}

func (r *tradeRequestRepository) Create(ctx context.Context, req *models.TradeRequest) error {
	req.CreatedAt = time.Now()
	req.UpdatedAt = time.Now()
	req.Status = models.RequestPending

	_, err := r.db.NewInsert().Model(req).Exec(ctx)
	if isUniqueViolation(err) {
		return ErrDuplicatePending
	}
	if err != nil {
		return fmt.Errorf("failed to create trade request: %w", err)
	}
	return nil
}

func (r *tradeRequestRepository) GetByID(ctx context.Context, id int64) (*models.TradeRequest, error) {
	req := new(models.TradeRequest)
	err := r.db.NewSelect().
		Model(req).
		Where("tr.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade request: %w", err)
	}
	return req, nil
}

func (r *tradeRequestRepository) GetInbox(ctx context.Context, userID string) ([]*models.TradeRequest, error) {
	var reqs []*models.TradeRequest
	err := r.db.NewSelect().
		Model(&reqs).
		Where("to_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox: %w", err)
	}
	return reqs, nil
}

func (r *tradeRequestRepository) GetOutbox(ctx context.Context, userID string) ([]*models.TradeRequest, error) {
	var reqs []*models.TradeRequest
	err := r.db.NewSelect().
		Model(&reqs).
		Where("from_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox: %w", err)
	}
	return reqs, nil
}

func (r *tradeRequestRepository) PendingExists(ctx context.Context, fromID, toID string, cardID int64) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.TradeRequest)(nil)).
		Where("from_id = ? AND to_id = ? AND card_id = ? AND status = ?",
			fromID, toID, cardID, models.RequestPending).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return exists, nil
}

// Finish moves a pending request into a terminal status and stamps
// finished_at, which starts the garbage-collection clock. Returns false when
// the request already left pending.
func (r *tradeRequestRepository) Finish(ctx context.Context, id int64, status models.RequestStatus, tradeID int64) (bool, error) {
	q := r.db.NewUpdate().
		Model((*models.TradeRequest)(nil)).
		Set("status = ?", status).
		Set("finished_at = ?", time.Now()).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", id, models.RequestPending)

	if tradeID != 0 {
		q = q.Set("trade_id = ?", tradeID)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to finish trade request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkCompleted moves an accepted request to completed once its spawned trade
// finishes. Returns false when the request is not in accepted state (or was
// already garbage-collected).
func (r *tradeRequestRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.TradeRequest)(nil)).
		Set("status = ?", models.RequestCompleted).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", id, models.RequestAccepted).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to complete trade request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteFinishedBefore removes terminal requests whose finished_at is older
// than the cutoff. Pending requests are never touched.
func (r *tradeRequestRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.TradeRequest)(nil)).
		Where("status != ? AND finished_at IS NOT NULL AND finished_at < ?",
			models.RequestPending, cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete finished requests: %w", err)
	}
	return result.RowsAffected()
}
