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

type CollectionRepository interface {
	Create(ctx context.Context, col *models.Collection) error
	GetByID(ctx context.Context, id string) (*models.Collection, error)
	GetAll(ctx context.Context) ([]*models.Collection, error)
}

type collectionRepository struct {
	db *bun.DB
}

func NewCollectionRepository(db *bun.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

func (r *collectionRepository) Create(ctx context.Context, col *models.Collection) error {
	col.CreatedAt = time.Now()
	col.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(col).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (r *collectionRepository) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	col := new(models.Collection)
	err := r.db.NewSelect().
		Model(col).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return col, nil
}

func (r *collectionRepository) GetAll(ctx context.Context) ([]*models.Collection, error) {
	var cols []*models.Collection
	err := r.db.NewSelect().
		Model(&cols).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return cols, nil
}
