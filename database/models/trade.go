package models

import (
	"time"

	"github.com/samber/lo"
	"github.com/uptrace/bun"
)

type TradeKind string

const (
	TradePublic  TradeKind = "public"
	TradePrivate TradeKind = "private"
)

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeRejected  TradeStatus = "rejected"
	TradeCompleted TradeStatus = "completed"
	TradeCancelled TradeStatus = "cancelled"
)

// IsTerminal reports whether no further mutation is accepted for the status.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeRejected || s == TradeCompleted || s == TradeCancelled
}

type TradeSide string

const (
	SideInitiator TradeSide = "initiator"
	SideReceiver  TradeSide = "receiver"
	SideNone      TradeSide = ""
)

// TradeCard is an offered-card value object embedded in the trade. It has no
// lifecycle of its own; estimated value is an opaque caller-supplied input.
type TradeCard struct {
	UserCardID     int64 `json:"user_card_id"`
	CardID         int64 `json:"card_id"`
	EstimatedValue int64 `json:"estimated_value"`
}

// Trade is a committed exchange between two accounts.
type Trade struct {
	bun.BaseModel `bun:"table:trades,alias:t"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	TradeID string `bun:"trade_id,notnull,unique" json:"trade_id"`

	// RoomCode correlates the live session to this trade. Present for private
	// trades, generated once, never rewritten.
	RoomCode string `bun:"room_code,nullzero,unique" json:"room_code,omitempty"`

	InitiatorID string      `bun:"initiator_id,notnull" json:"initiator_id"`
	ReceiverID  string      `bun:"receiver_id,notnull" json:"receiver_id"`
	Kind        TradeKind   `bun:"kind,notnull" json:"kind"`
	Status      TradeStatus `bun:"status,notnull" json:"status"`

	InitiatorCards []TradeCard `bun:"initiator_cards,type:jsonb" json:"initiator_cards"`
	ReceiverCards  []TradeCard `bun:"receiver_cards,type:jsonb" json:"receiver_cards"`

	// Picks are the cards each party selected at confirmation time; these are
	// what actually change owner on completion.
	InitiatorPick *TradeCard `bun:"initiator_pick,type:jsonb" json:"initiator_pick,omitempty"`
	ReceiverPick  *TradeCard `bun:"receiver_pick,type:jsonb" json:"receiver_pick,omitempty"`

	InitiatorConfirmed bool `bun:"initiator_confirmed,notnull,default:false" json:"initiator_confirmed"`
	ReceiverConfirmed  bool `bun:"receiver_confirmed,notnull,default:false" json:"receiver_confirmed"`

	InitiatorValue int64   `bun:"initiator_value,notnull,default:0" json:"initiator_value"`
	ReceiverValue  int64   `bun:"receiver_value,notnull,default:0" json:"receiver_value"`
	ValueDiffPct   float64 `bun:"value_diff_pct,notnull,default:0" json:"value_diff_pct"`

	// Back-references to the originating request, when any.
	RequestID       int64 `bun:"request_id,nullzero" json:"request_id,omitempty"`
	RequestedCardID int64 `bun:"requested_card_id,nullzero" json:"requested_card_id,omitempty"`

	CompletedAt time.Time `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// SideOf maps an account to its side of the trade.
func (t *Trade) SideOf(accountID string) TradeSide {
	switch accountID {
	case t.InitiatorID:
		return SideInitiator
	case t.ReceiverID:
		return SideReceiver
	default:
		return SideNone
	}
}

// OfferedTotals sums the estimated values of the creation-time cargo.
func (t *Trade) OfferedTotals() (initiator, receiver int64) {
	sum := func(cards []TradeCard) int64 {
		return lo.SumBy(cards, func(c TradeCard) int64 { return c.EstimatedValue })
	}
	return sum(t.InitiatorCards), sum(t.ReceiverCards)
}

// PickTotals sums the estimated values of the confirmed picks. Both picks must
// be set before completion, so zero values only appear mid-negotiation.
func (t *Trade) PickTotals() (initiator, receiver int64) {
	if t.InitiatorPick != nil {
		initiator = t.InitiatorPick.EstimatedValue
	}
	if t.ReceiverPick != nil {
		receiver = t.ReceiverPick.EstimatedValue
	}
	return initiator, receiver
}

// BothConfirmed reports whether the trade is ready for the atomic completion
// step.
func (t *Trade) BothConfirmed() bool {
	return t.InitiatorConfirmed && t.ReceiverConfirmed
}

// Pick returns the selected card for a side, nil when not yet confirmed.
func (t *Trade) Pick(side TradeSide) *TradeCard {
	if side == SideInitiator {
		return t.InitiatorPick
	}
	return t.ReceiverPick
}

// Counterparty returns the account on the other side of the trade.
func (t *Trade) Counterparty(accountID string) string {
	if accountID == t.InitiatorID {
		return t.ReceiverID
	}
	return t.InitiatorID
}
