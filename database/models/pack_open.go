package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PackOpen is an append-only log entry for a pack opening. Diagnostic only;
// the token bucket on the users row is what actually rate-limits.
type PackOpen struct {
	bun.BaseModel `bun:"table:pack_opens,alias:po"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID       string    `bun:"user_id,notnull" json:"user_id"`
	CollectionID string    `bun:"collection_id,notnull" json:"collection_id"`
	CardIDs      []int64   `bun:"card_ids,type:jsonb" json:"card_ids"`
	OpenedAt     time.Time `bun:"opened_at,notnull,default:current_timestamp" json:"opened_at"`
}
