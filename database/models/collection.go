package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Collection is a card set. Packs are opened against a single collection.
type Collection struct {
	bun.BaseModel `bun:"table:collections,alias:col"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Series    string    `bun:"series" json:"series,omitempty"`
	Tags      []string  `bun:"tags,type:jsonb" json:"tags,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`

	// Relations
	Cards []*Card `bun:"rel:has-many,join:id=col_id" json:"-"`
}
