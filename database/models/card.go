package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Rarity tiers. LevelCommon is the floor; everything above it counts as the
// "rare" sub-pool for pack composition.
const (
	LevelCommon    = 1
	LevelUncommon  = 2
	LevelRare      = 3
	LevelEpic      = 4
	LevelLegendary = 5
)

// Card is a catalog entry. Ownership lives in UserCard.
type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Level     int       `bun:"level,notnull" json:"level"`
	ColID     string    `bun:"col_id,notnull,type:text" json:"col_id"`
	ImageURL  string    `bun:"image_url" json:"image_url,omitempty"`
	Tags      []string  `bun:"tags,type:jsonb" json:"tags,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`

	// Relations
	Collection *Collection `bun:"rel:belongs-to,join:col_id=id" json:"-"`
}

// AboveCommon reports whether the card belongs to the rare sub-pool.
func (c *Card) AboveCommon() bool {
	return c.Level > LevelCommon
}
