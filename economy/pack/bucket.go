package pack

import (
	"context"
	"errors"
	"time"

	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/database/repositories"
)

const (
	// DefaultCapacity is the maximum number of banked pack tokens.
	DefaultCapacity = 2
	// DefaultRefillInterval is the time to credit one token.
	DefaultRefillInterval = 6 * time.Hour

	// opensWindow is the diagnostic window for the open count reported on
	// status reads.
	opensWindow = 24 * time.Hour
)

// RateLimitedError is returned when a pack open finds the bucket empty. It
// carries the earliest instant the next token will exist.
type RateLimitedError struct {
	NextAllowed time.Time
}

func (e *RateLimitedError) Error() string {
	return "no pack tokens available until " + e.NextAllowed.Format(time.RFC3339)
}

// AsRateLimited unwraps err into a RateLimitedError when it is one.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	ok := errors.As(err, &rl)
	return rl, ok
}

// BucketStatus is the read-side view of an account's token bucket, plus the
// diagnostic count of packs opened in the last 24 hours.
type BucketStatus struct {
	Tokens       int        `json:"tokens"`
	Capacity     int        `json:"capacity"`
	NextTokenAt  *time.Time `json:"next_token_at,omitempty"`
	OpensLast24h int        `json:"opens_last_24h"`
}

// Bucket meters pack opens per account. Tokens refill one per interval up to
// capacity; banked tokens never exceed capacity no matter how long the
// account idles.
type Bucket struct {
	packs    repositories.PackRepository
	capacity int
	interval time.Duration
	now      func() time.Time
}

func NewBucket(packs repositories.PackRepository, capacity int, interval time.Duration) *Bucket {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if interval <= 0 {
		interval = DefaultRefillInterval
	}
	return &Bucket{
		packs:    packs,
		capacity: capacity,
		interval: interval,
		now:      time.Now,
	}
}

// Status applies the lazy refill and reports the current bucket. The write is
// conditional, so concurrent readers cannot double-credit.
func (b *Bucket) Status(ctx context.Context, userID string) (*BucketStatus, error) {
	now := b.now()
	user, err := b.packs.RefreshBucket(ctx, userID, b.capacity, b.interval, now)
	if err != nil {
		return nil, err
	}
	opens, err := b.packs.CountOpensSince(ctx, userID, now.Add(-opensWindow))
	if err != nil {
		return nil, err
	}
	st := b.statusOf(user)
	st.OpensLast24h = opens
	return st, nil
}

// Consume spends one token or fails with RateLimitedError carrying the refill
// instant. The decrement happens under a row lock, so concurrent opens can
// never spend the same token twice.
func (b *Bucket) Consume(ctx context.Context, userID string) (*models.User, error) {
	user, ok, err := b.packs.ConsumeToken(ctx, userID, b.capacity, b.interval, b.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &RateLimitedError{NextAllowed: user.NextPackTokenAt(b.interval)}
	}
	return user, nil
}

// Reset restores the bucket to full capacity. Operator surface only.
func (b *Bucket) Reset(ctx context.Context, userID string) error {
	return b.packs.ResetBucket(ctx, userID, b.capacity, b.now())
}

func (b *Bucket) statusOf(user *models.User) *BucketStatus {
	st := &BucketStatus{Tokens: user.PackTokens, Capacity: b.capacity}
	if user.PackTokens < b.capacity {
		next := user.NextPackTokenAt(b.interval)
		st.NextTokenAt = &next
	}
	return st
}
