package trade

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/database/repositories"
	"github.com/seralyne/cardex/economy/fairness"
)

// Notifier pushes terminal trade events into the live room, when one exists.
// The room layer implements it; a nil notifier is allowed.
type Notifier interface {
	TradeCompleted(roomCode string, trade *models.Trade)
	TradeRejected(roomCode string, trade *models.Trade)
}

// ConfirmOutcome distinguishes the two non-error results of a confirmation:
// the trade either completed in this call (or a concurrent one), or it is
// still waiting for the counterparty.
type ConfirmOutcome string

const (
	OutcomeWaitingOtherParty ConfirmOutcome = "WAITING_OTHER_PARTY"
	OutcomeCompleted         ConfirmOutcome = "TRADE_COMPLETED"
)

type ConfirmResult struct {
	Outcome ConfirmOutcome
	Trade   *models.Trade
}

// Ledger owns the Trade state machine.
type Ledger struct {
	trades    repositories.TradeRepository
	userCards repositories.UserCardRepository
	requests  repositories.TradeRequestRepository
	notifier  Notifier
}

func NewLedger(trades repositories.TradeRepository, userCards repositories.UserCardRepository) *Ledger {
	return &Ledger{trades: trades, userCards: userCards}
}

// SetNotifier attaches the live-room notifier. Called once at wiring time.
func (l *Ledger) SetNotifier(n Notifier) {
	l.notifier = n
}

// SetRequestTracker attaches the request repository so trades spawned from a
// request stamp it completed when they finish. Called once at wiring time.
func (l *Ledger) SetRequestTracker(requests repositories.TradeRequestRepository) {
	l.requests = requests
}

// CreateParams carries everything needed to open a trade. OfferedCards and
// ReceiverCards are the creation-time cargo used for the fairness gate;
// estimated values are opaque caller input.
type CreateParams struct {
	InitiatorID     string
	ReceiverID      string
	Kind            models.TradeKind
	InitiatorCards  []models.TradeCard
	ReceiverCards   []models.TradeCard
	RequestID       int64
	RequestedCardID int64
	RoomCode        string
}

// Create validates and persists a new pending trade. Fairness violations and
// self-trades fail before anything is written.
func (l *Ledger) Create(ctx context.Context, p CreateParams) (*models.Trade, error) {
	if p.InitiatorID == p.ReceiverID {
		return nil, ErrSelfTrade
	}

	sum := func(cards []models.TradeCard) int64 {
		return lo.SumBy(cards, func(c models.TradeCard) int64 { return c.EstimatedValue })
	}
	initTotal := sum(p.InitiatorCards)
	recvTotal := sum(p.ReceiverCards)

	pct, err := fairness.Validate(initTotal, recvTotal, p.Kind)
	if err != nil {
		return nil, err
	}

	roomCode := p.RoomCode
	if p.Kind == models.TradePrivate && roomCode == "" {
		roomCode, err = generateRoomCode()
		if err != nil {
			return nil, err
		}
	}

	trade := &models.Trade{
		TradeID:         uuid.NewString(),
		RoomCode:        roomCode,
		InitiatorID:     p.InitiatorID,
		ReceiverID:      p.ReceiverID,
		Kind:            p.Kind,
		InitiatorCards:  p.InitiatorCards,
		ReceiverCards:   p.ReceiverCards,
		InitiatorValue:  initTotal,
		ReceiverValue:   recvTotal,
		ValueDiffPct:    pct,
		RequestID:       p.RequestID,
		RequestedCardID: p.RequestedCardID,
	}

	if err := l.trades.Create(ctx, trade); err != nil {
		return nil, err
	}

	slog.Info("Trade created",
		slog.String("trade_uuid", trade.TradeID),
		slog.String("kind", string(trade.Kind)),
		slog.String("initiator_id", trade.InitiatorID),
		slog.String("receiver_id", trade.ReceiverID),
		slog.Float64("value_diff_pct", pct))

	return trade, nil
}

// Confirm records the acting party's card pick and confirmation flag, then
// attempts the atomic completion step. Re-confirming the same card is a
// no-op, and picks stay changeable while the trade is pending so a fairness
// failure at completion can be resolved by picking a different card.
func (l *Ledger) Confirm(ctx context.Context, tradeID int64, actor string, userCardID, estimatedValue int64) (*ConfirmResult, error) {
	trade, err := l.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	side := trade.SideOf(actor)
	if side == models.SideNone {
		return nil, ErrForbidden
	}

	if trade.Status != models.TradePending {
		if trade.Status == models.TradeCompleted {
			// The race already resolved; report the observed terminal state.
			return &ConfirmResult{Outcome: OutcomeCompleted, Trade: trade}, nil
		}
		return nil, ErrInvalidTransition
	}

	owned, err := l.userCards.GetOwned(ctx, actor, userCardID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCardNotOwned
		}
		return nil, err
	}

	// The party fulfilling a single-card request must hand over exactly the
	// demanded catalog card.
	if trade.RequestedCardID != 0 && side == models.SideReceiver && owned.CardID != trade.RequestedCardID {
		return nil, ErrRequestedCardMismatch
	}

	pick := models.TradeCard{
		UserCardID:     userCardID,
		CardID:         owned.CardID,
		EstimatedValue: estimatedValue,
	}
	if pick.EstimatedValue == 0 {
		pick.EstimatedValue = l.offeredValue(trade, side, userCardID)
	}

	saved, err := l.trades.SavePick(ctx, tradeID, side, pick)
	if err != nil {
		return nil, err
	}
	if !saved {
		// Lost a race against a terminal transition.
		latest, err := l.trades.GetByID(ctx, tradeID)
		if err != nil {
			return nil, err
		}
		if latest.Status == models.TradeCompleted {
			return &ConfirmResult{Outcome: OutcomeCompleted, Trade: latest}, nil
		}
		return nil, ErrInvalidTransition
	}

	return l.tryComplete(ctx, tradeID)
}

// tryComplete runs the atomic completion step and translates its result into
// the caller-visible outcome.
func (l *Ledger) tryComplete(ctx context.Context, tradeID int64) (*ConfirmResult, error) {
	trade, completedNow, err := l.trades.Complete(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	if trade.Status == models.TradeCompleted {
		if completedNow {
			if l.requests != nil && trade.RequestID != 0 {
				if _, err := l.requests.MarkCompleted(ctx, trade.RequestID); err != nil {
					slog.Error("Failed to complete originating request",
						slog.Int64("trade_id", trade.ID),
						slog.Int64("request_id", trade.RequestID),
						slog.Any("error", err))
				}
			}
			if l.notifier != nil && trade.RoomCode != "" {
				l.notifier.TradeCompleted(trade.RoomCode, trade)
			}
		}
		return &ConfirmResult{Outcome: OutcomeCompleted, Trade: trade}, nil
	}
	return &ConfirmResult{Outcome: OutcomeWaitingOtherParty, Trade: trade}, nil
}

// SetStatus lets either party reject or cancel a pending trade. Terminal
// trades never transition again.
func (l *Ledger) SetStatus(ctx context.Context, tradeID int64, actor string, status models.TradeStatus) (*models.Trade, error) {
	if status != models.TradeRejected && status != models.TradeCancelled {
		return nil, ErrInvalidTransition
	}

	trade, err := l.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade.SideOf(actor) == models.SideNone {
		return nil, ErrForbidden
	}

	ok, err := l.trades.UpdateStatusIfPending(ctx, tradeID, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	trade.Status = status
	if l.notifier != nil && trade.RoomCode != "" {
		l.notifier.TradeRejected(trade.RoomCode, trade)
	}

	slog.Info("Trade closed",
		slog.String("trade_uuid", trade.TradeID),
		slog.String("status", string(status)),
		slog.String("actor", actor))

	return trade, nil
}

// Get returns a trade only to its two parties.
func (l *Ledger) Get(ctx context.Context, tradeID int64, actor string) (*models.Trade, error) {
	trade, err := l.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade.SideOf(actor) == models.SideNone {
		return nil, ErrForbidden
	}
	return trade, nil
}

// GetByRoomCode resolves the trade backing a live room. Callers enforce
// party membership themselves since room joins carry their own identity.
func (l *Ledger) GetByRoomCode(ctx context.Context, roomCode string) (*models.Trade, error) {
	return l.trades.GetByRoomCode(ctx, roomCode)
}

// ListFor returns all trades the account participates in.
func (l *Ledger) ListFor(ctx context.Context, actor string) ([]*models.Trade, error) {
	return l.trades.GetUserTrades(ctx, actor)
}

func (l *Ledger) offeredValue(trade *models.Trade, side models.TradeSide, userCardID int64) int64 {
	cards := trade.InitiatorCards
	if side == models.SideReceiver {
		cards = trade.ReceiverCards
	}
	for _, c := range cards {
		if c.UserCardID == userCardID {
			return c.EstimatedValue
		}
	}
	return 0
}
