package trade

import (
	"context"
	"errors"
	"log/slog"

	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/database/repositories"
)

// RequestBroker manages single-card trade requests and their promotion into
// real trades on acceptance.
type RequestBroker struct {
	requests  repositories.TradeRequestRepository
	cards     repositories.CardRepository
	userCards repositories.UserCardRepository
	ledger    *Ledger
}

func NewRequestBroker(
	requests repositories.TradeRequestRepository,
	cards repositories.CardRepository,
	userCards repositories.UserCardRepository,
	ledger *Ledger,
) *RequestBroker {
	return &RequestBroker{
		requests:  requests,
		cards:     cards,
		userCards: userCards,
		ledger:    ledger,
	}
}

// CreateRequestParams describes a new request. OfferedUserCardID is optional;
// when set it must be owned by the sender.
type CreateRequestParams struct {
	FromID            string
	ToID              string
	CardID            int64
	OfferedUserCardID int64
	Manual            bool
}

// Create records a pending request for a specific catalog card from another
// account. Duplicate pending requests for the same (from, to, card) triple
// are rejected; the partial unique index catches races the pre-check misses.
func (b *RequestBroker) Create(ctx context.Context, p CreateRequestParams) (*models.TradeRequest, error) {
	if p.FromID == p.ToID {
		return nil, ErrSelfTrade
	}

	card, err := b.cards.GetByID(ctx, p.CardID)
	if err != nil {
		return nil, err
	}

	if p.OfferedUserCardID != 0 {
		if _, err := b.userCards.GetOwned(ctx, p.FromID, p.OfferedUserCardID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrCardNotOwned
			}
			return nil, err
		}
	}

	exists, err := b.requests.PendingExists(ctx, p.FromID, p.ToID, p.CardID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateRequest
	}

	req := &models.TradeRequest{
		FromID:            p.FromID,
		ToID:              p.ToID,
		CardID:            card.ID,
		CardName:          card.Name,
		CardImage:         card.ImageURL,
		OfferedUserCardID: p.OfferedUserCardID,
		Manual:            p.Manual,
	}
	if err := b.requests.Create(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePending) {
			return nil, ErrDuplicateRequest
		}
		return nil, err
	}

	slog.Info("Trade request created",
		slog.Int64("request_id", req.ID),
		slog.String("from_id", req.FromID),
		slog.String("to_id", req.ToID),
		slog.Int64("card_id", req.CardID))

	return req, nil
}

// Accept promotes a pending request into a private trade between the two
// parties. Only the recipient may accept. The spawned trade carries the
// request back-reference so confirmation can enforce the demanded card.
func (b *RequestBroker) Accept(ctx context.Context, requestID int64, actor string) (*models.TradeRequest, *models.Trade, error) {
	req, err := b.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req.ToID != actor {
		return nil, nil, ErrForbidden
	}
	if req.Status.IsTerminal() {
		return nil, nil, ErrInvalidTransition
	}

	params := CreateParams{
		InitiatorID:     req.FromID,
		ReceiverID:      req.ToID,
		Kind:            models.TradePrivate,
		RequestID:       req.ID,
		RequestedCardID: req.CardID,
	}
	if req.OfferedUserCardID != 0 {
		if owned, err := b.userCards.GetOwned(ctx, req.FromID, req.OfferedUserCardID); err == nil {
			params.InitiatorCards = []models.TradeCard{{
				UserCardID: owned.ID,
				CardID:     owned.CardID,
			}}
		}
	}

	tr, err := b.ledger.Create(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	ok, err := b.requests.Finish(ctx, requestID, models.RequestAccepted, tr.ID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// Someone else finished the request between our read and the CAS.
		// The spawned trade is orphaned, cancel it.
		_, _ = b.ledger.trades.UpdateStatusIfPending(ctx, tr.ID, models.TradeCancelled)
		return nil, nil, ErrInvalidTransition
	}

	req.Status = models.RequestAccepted
	req.TradeID = tr.ID

	slog.Info("Trade request accepted",
		slog.Int64("request_id", req.ID),
		slog.String("trade_uuid", tr.TradeID))

	return req, tr, nil
}

// Reject closes a pending request. Only the recipient may reject.
func (b *RequestBroker) Reject(ctx context.Context, requestID int64, actor string) (*models.TradeRequest, error) {
	return b.finish(ctx, requestID, actor, false, models.RequestRejected)
}

// Cancel withdraws a pending request. Only the sender may cancel.
func (b *RequestBroker) Cancel(ctx context.Context, requestID int64, actor string) (*models.TradeRequest, error) {
	return b.finish(ctx, requestID, actor, true, models.RequestCancelled)
}

// Inbox lists requests addressed to the account.
func (b *RequestBroker) Inbox(ctx context.Context, actor string) ([]*models.TradeRequest, error) {
	return b.requests.GetInbox(ctx, actor)
}

// Outbox lists requests the account has sent.
func (b *RequestBroker) Outbox(ctx context.Context, actor string) ([]*models.TradeRequest, error) {
	return b.requests.GetOutbox(ctx, actor)
}

func (b *RequestBroker) finish(ctx context.Context, requestID int64, actor string, bySender bool, status models.RequestStatus) (*models.TradeRequest, error) {
	req, err := b.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	owner := req.ToID
	if bySender {
		owner = req.FromID
	}
	if owner != actor {
		return nil, ErrForbidden
	}
	if req.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	ok, err := b.requests.Finish(ctx, requestID, status, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	req.Status = status
	return req, nil
}
