package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
	RequestCompleted RequestStatus = "completed"
)

func (s RequestStatus) IsTerminal() bool {
	return s != RequestPending
}

// TradeRequest is a pre-commitment proposal for a single-card trade. At most
// one pending request may exist per ordered (from, to, card) triple; the
// partial unique index in the schema backs that invariant.
type TradeRequest struct {
	bun.BaseModel `bun:"table:trade_requests,alias:tr"`

	ID     int64  `bun:"id,pk,autoincrement" json:"id"`
	FromID string `bun:"from_id,notnull" json:"from_id"`
	ToID   string `bun:"to_id,notnull" json:"to_id"`

	// CardID is the catalog card the requester demands. Name and image are
	// display copies only, never authoritative.
	CardID    int64  `bun:"card_id,notnull" json:"card_id"`
	CardName  string `bun:"card_name" json:"card_name,omitempty"`
	CardImage string `bun:"card_image" json:"card_image,omitempty"`

	// OfferedUserCardID is set when the requester proposes a specific card in
	// return instead of an open message.
	OfferedUserCardID int64 `bun:"offered_user_card_id,nullzero" json:"offered_user_card_id,omitempty"`

	// Manual marks a bare friend-initiated invitation with no specific card.
	Manual bool `bun:"manual,notnull,default:false" json:"manual"`

	Status  RequestStatus `bun:"status,notnull" json:"status"`
	TradeID int64         `bun:"trade_id,nullzero" json:"trade_id,omitempty"`

	FinishedAt time.Time `bun:"finished_at,nullzero" json:"finished_at,omitempty"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
