package models

import (
	"time"

	"github.com/uptrace/bun"
)

// FriendInvite is an invitation to a private trading room between two mutual
// friends. It carries no card; accepting one spawns a private Trade and the
// room code is written back here so the inviter can join.
type FriendInvite struct {
	bun.BaseModel `bun:"table:friend_invites,alias:fi"`

	ID     int64  `bun:"id,pk,autoincrement" json:"id"`
	FromID string `bun:"from_id,notnull" json:"from_id"`
	ToID   string `bun:"to_id,notnull" json:"to_id"`

	Status   RequestStatus `bun:"status,notnull" json:"status"`
	TradeID  int64         `bun:"trade_id,nullzero" json:"trade_id,omitempty"`
	RoomCode string        `bun:"room_code,nullzero" json:"room_code,omitempty"`

	FinishedAt time.Time `bun:"finished_at,nullzero" json:"finished_at,omitempty"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
