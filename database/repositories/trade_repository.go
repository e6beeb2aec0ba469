package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/economy/fairness"
)

type TradeRepository interface {
	Create(ctx context.Context, trade *models.Trade) error
	GetByID(ctx context.Context, id int64) (*models.Trade, error)
	GetByTradeID(ctx context.Context, tradeID string) (*models.Trade, error)
	GetByRoomCode(ctx context.Context, roomCode string) (*models.Trade, error)
	GetUserTrades(ctx context.Context, userID string) ([]*models.Trade, error)
	SavePick(ctx context.Context, tradeID int64, side models.TradeSide, pick models.TradeCard) (bool, error)
	Complete(ctx context.Context, tradeID int64) (*models.Trade, bool, error)
	UpdateStatusIfPending(ctx context.Context, tradeID int64, status models.TradeStatus) (bool, error)
}

type tradeRepository struct {
	db *bun.DB
}

func NewTradeRepository(db *bun.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	trade.CreatedAt = time.Now()
	trade.UpdatedAt = time.Now()
	trade.Status = models.TradePending

	_, err := r.db.NewInsert().Model(trade).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

func (r *tradeRepository) GetByID(ctx context.Context, id int64) (*models.Trade, error) {
	trade := new(models.Trade)
	err := r.db.NewSelect().
		Model(trade).
		Where("t.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

func (r *tradeRepository) GetByTradeID(ctx context.Context, tradeID string) (*models.Trade, error) {
	trade := new(models.Trade)
	err := r.db.NewSelect().
		Model(trade).
		Where("trade_id = ?", tradeID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

func (r *tradeRepository) GetByRoomCode(ctx context.Context, roomCode string) (*models.Trade, error) {
	trade := new(models.Trade)
	err := r.db.NewSelect().
		Model(trade).
		Where("room_code = ?", roomCode).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade by room code: %w", err)
	}
	return trade, nil
}

func (r *tradeRepository) GetUserTrades(ctx context.Context, userID string) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := r.db.NewSelect().
		Model(&trades).
		Where("initiator_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user trades: %w", err)
	}
	return trades, nil
}

// SavePick records one party's selected card and confirmation flag. The WHERE
// clause keeps terminal trades immutable; the returned bool is false when the
// trade was no longer pending.
func (r *tradeRepository) SavePick(ctx context.Context, tradeID int64, side models.TradeSide, pick models.TradeCard) (bool, error) {
	q := r.db.NewUpdate().
		Model((*models.Trade)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", tradeID, models.TradePending)

	if side == models.SideInitiator {
		q = q.Set("initiator_pick = ?", pick).Set("initiator_confirmed = TRUE")
	} else {
		q = q.Set("receiver_pick = ?", pick).Set("receiver_confirmed = TRUE")
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to save pick: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

// Complete performs the atomic completion step: inside one serializable
// transaction it re-reads the trade under lock, and only when both parties
// have confirmed does it re-validate fairness on the final values, flip the
// owner of each picked card and set status = completed. Two racing callers
// serialize on the row lock; exactly one observes completedNow = true.
func (r *tradeRepository) Complete(ctx context.Context, tradeID int64) (*models.Trade, bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	trade := new(models.Trade)
	err = tx.NewSelect().
		Model(trade).
		Where("t.id = ?", tradeID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock trade: %w", err)
	}

	// The race loser lands here after the winner committed.
	if trade.Status != models.TradePending {
		return trade, false, nil
	}
	if !trade.BothConfirmed() {
		return trade, false, nil
	}

	initTotal, recvTotal := trade.PickTotals()
	pct, err := fairness.Validate(initTotal, recvTotal, trade.Kind)
	if err != nil {
		return trade, false, err
	}

	now := time.Now()
	transfers := []struct {
		pick  *models.TradeCard
		from  string
		to    string
	}{
		{trade.InitiatorPick, trade.InitiatorID, trade.ReceiverID},
		{trade.ReceiverPick, trade.ReceiverID, trade.InitiatorID},
	}

	for _, tr := range transfers {
		result, err := tx.NewUpdate().
			Model((*models.UserCard)(nil)).
			Set("user_id = ?", tr.to).
			Set("favorite = FALSE").
			Set("locked = FALSE").
			Set("obtained = ?", now).
			Set("updated_at = ?", now).
			Where("id = ? AND user_id = ?", tr.pick.UserCardID, tr.from).
			Exec(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to transfer card: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, false, fmt.Errorf("failed to check transfer: %w", err)
		}
		if affected == 0 {
			// Owner changed between confirmation and completion; the whole
			// transaction rolls back.
			return nil, false, fmt.Errorf("card %d is no longer owned by %s: %w", tr.pick.UserCardID, tr.from, ErrNotFound)
		}
	}

	trade.Status = models.TradeCompleted
	trade.InitiatorValue = initTotal
	trade.ReceiverValue = recvTotal
	trade.ValueDiffPct = pct
	trade.CompletedAt = now
	trade.UpdatedAt = now

	_, err = tx.NewUpdate().
		Model(trade).
		Column("status", "initiator_value", "receiver_value", "value_diff_pct", "completed_at", "updated_at").
		Where("id = ?", tradeID).
		Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to complete trade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit trade completion: %w", err)
	}

	slog.Info("Trade completed",
		slog.Int64("trade_id", tradeID),
		slog.String("trade_uuid", trade.TradeID),
		slog.String("initiator_id", trade.InitiatorID),
		slog.String("receiver_id", trade.ReceiverID),
		slog.Float64("value_diff_pct", pct))

	return trade, true, nil
}

// UpdateStatusIfPending transitions the trade to a terminal status. Returns
// false when the trade already left pending.
func (r *tradeRepository) UpdateStatusIfPending(ctx context.Context, tradeID int64, status models.TradeStatus) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Trade)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", tradeID, models.TradePending).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update trade status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}
