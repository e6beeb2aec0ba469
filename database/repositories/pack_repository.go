package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/seralyne/cardex/database/models"
)

type PackRepository interface {
	// ConsumeToken recomputes the bucket under a row lock and decrements one
	// token. ok is false when the bucket is empty; the returned user carries
	// the recomputed state either way.
	ConsumeToken(ctx context.Context, userID string, capacity int, interval time.Duration, now time.Time) (*models.User, bool, error)
	// RefreshBucket applies the lazy read-time refill and persists it when it
	// credited anything. Monotonic and idempotent across concurrent readers.
	RefreshBucket(ctx context.Context, userID string, capacity int, interval time.Duration, now time.Time) (*models.User, error)
	ResetBucket(ctx context.Context, userID string, capacity int, now time.Time) error
	IssueCards(ctx context.Context, userID, collectionID string, cards []*models.Card, now time.Time) ([]*models.UserCard, error)
	CountOpensSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type packRepository struct {
	db *bun.DB
}

func NewPackRepository(db *bun.DB) PackRepository {
	return &packRepository{db: db}
}

func (r *packRepository) ConsumeToken(ctx context.Context, userID string, capacity int, interval time.Duration, now time.Time) (*models.User, bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	user := new(models.User)
	err = tx.NewSelect().
		Model(user).
		Where("u.id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock user: %w", err)
	}

	user.RefillPackTokens(now, interval, capacity)
	if user.PackTokens < 1 {
		// Persist the recompute so the stored state never lags behind.
		if err := updateBucket(ctx, tx, user); err != nil {
			return nil, false, err
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("failed to commit bucket refresh: %w", err)
		}
		return user, false, nil
	}

	user.PackTokens--
	if err := updateBucket(ctx, tx, user); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit token consumption: %w", err)
	}
	return user, true, nil
}

func (r *packRepository) RefreshBucket(ctx context.Context, userID string, capacity int, interval time.Duration, now time.Time) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("u.id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	before := user.PackTokens
	user.RefillPackTokens(now, interval, capacity)
	if user.PackTokens == before {
		return user, nil
	}

	// Conditional write: only apply on top of the state we read, so racing
	// readers cannot double-credit.
	_, err = r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("pack_tokens = ?", user.PackTokens).
		Set("pack_refill_at = ?", user.PackRefillAt).
		Set("updated_at = ?", now).
		Where("id = ? AND pack_tokens = ?", userID, before).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to persist bucket refresh: %w", err)
	}
	return user, nil
}

func (r *packRepository) ResetBucket(ctx context.Context, userID string, capacity int, now time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("pack_tokens = ?", capacity).
		Set("pack_refill_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset bucket: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IssueCards creates one ownership record per drawn card plus the diagnostic
// pack-open log entry, all in one transaction.
func (r *packRepository) IssueCards(ctx context.Context, userID, collectionID string, cards []*models.Card, now time.Time) ([]*models.UserCard, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	owned := make([]*models.UserCard, 0, len(cards))
	cardIDs := make([]int64, 0, len(cards))
	for _, card := range cards {
		uc := &models.UserCard{
			UserID:    userID,
			CardID:    card.ID,
			Obtained:  now,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.NewInsert().Model(uc).Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to create ownership record: %w", err)
		}
		owned = append(owned, uc)
		cardIDs = append(cardIDs, card.ID)
	}

	open := &models.PackOpen{
		UserID:       userID,
		CollectionID: collectionID,
		CardIDs:      cardIDs,
		OpenedAt:     now,
	}
	if _, err := tx.NewInsert().Model(open).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to log pack open: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pack issuance: %w", err)
	}
	return owned, nil
}

func (r *packRepository) CountOpensSince(ctx context.Context, userID string, since time.Time) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.PackOpen)(nil)).
		Where("user_id = ? AND opened_at > ?", userID, since).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pack opens: %w", err)
	}
	return count, nil
}

func updateBucket(ctx context.Context, tx bun.Tx, user *models.User) error {
	_, err := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("pack_tokens = ?", user.PackTokens).
		Set("pack_refill_at = ?", user.PackRefillAt).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update bucket: %w", err)
	}
	return nil
}
