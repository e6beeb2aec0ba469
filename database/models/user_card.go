package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserCard is a single owned card instance. A trade transfers ownership by
// rewriting user_id on the two selected rows.
type UserCard struct {
	bun.BaseModel `bun:"table:user_cards,alias:uc"`

	ID       int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID   string    `bun:"user_id,notnull" json:"user_id"`
	CardID   int64     `bun:"card_id,notnull" json:"card_id"`
	Favorite bool      `bun:"favorite,notnull,default:false" json:"favorite"`
	Locked   bool      `bun:"locked,notnull,default:false" json:"locked"`
	Obtained time.Time `bun:"obtained,notnull,default:current_timestamp" json:"obtained"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`

	// Relations
	Card *Card `bun:"rel:belongs-to,join:card_id=id" json:"card,omitempty"`
}
