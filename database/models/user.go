package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       string `bun:"id,pk" json:"id"`
	Username string `bun:"username,notnull" json:"username"`

	// Friends is maintained by an external friend-list service; the trade
	// engine only reads it to gate friend-room invitations.
	Friends []string `bun:"friends,type:jsonb" json:"friends,omitempty"`

	// Pack token bucket. Mutated only inside single-row transactions.
	PackTokens   int       `bun:"pack_tokens,notnull,default:2" json:"pack_tokens"`
	PackRefillAt time.Time `bun:"pack_refill_at,notnull,default:current_timestamp" json:"pack_refill_at"`

	// APIToken is the bearer credential resolved on every request. Issuance
	// belongs to the external auth service.
	APIToken string `bun:"api_token,notnull,unique" json:"-"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// IsFriendOf reports whether other appears in the user's friend list.
func (u *User) IsFriendOf(other string) bool {
	for _, f := range u.Friends {
		if f == other {
			return true
		}
	}
	return false
}

// RefillPackTokens applies the time-based trickle refill to the bucket fields.
// It credits whole intervals only and advances PackRefillAt by exactly the
// credited amount, so repeated calls with the same now never double-credit.
func (u *User) RefillPackTokens(now time.Time, interval time.Duration, capacity int) {
	if u.PackTokens >= capacity {
		u.PackRefillAt = now
		return
	}
	elapsed := now.Sub(u.PackRefillAt)
	if elapsed < interval {
		return
	}
	credit := int(elapsed / interval)
	if u.PackTokens+credit >= capacity {
		u.PackTokens = capacity
		u.PackRefillAt = now
		return
	}
	u.PackTokens += credit
	u.PackRefillAt = u.PackRefillAt.Add(time.Duration(credit) * interval)
}

// NextPackTokenAt returns when the next token lands. Only meaningful while the
// bucket is below capacity.
func (u *User) NextPackTokenAt(interval time.Duration) time.Time {
	return u.PackRefillAt.Add(interval)
}
