package pack

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/samber/lo"

	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/database/repositories"
)

const (
	// PackSize is the total number of cards issued per pack.
	PackSize = 10
	// uniformDraws is the number of unconstrained slots before the rare slot.
	uniformDraws = PackSize - 1
)

var (
	ErrSetNotFound   = errors.New("card set not found")
	ErrCardPoolEmpty = errors.New("card set has no cards eligible for a pack")
)

// OpenResult is everything a single pack open produced.
type OpenResult struct {
	Cards     []*models.Card     `json:"cards"`
	UserCards []*models.UserCard `json:"user_cards"`
	Tokens    int                `json:"tokens_remaining"`
	OpenedAt  time.Time          `json:"opened_at"`
}

// Issuer opens packs: one bucket token buys nine uniform draws plus one draw
// guaranteed to land above common rarity.
type Issuer struct {
	bucket      *Bucket
	collections repositories.CollectionRepository
	cards       repositories.CardRepository
	packs       repositories.PackRepository

	// randIntn is swappable for deterministic draws in tests.
	randIntn func(n int) int
	now      func() time.Time
}

func NewIssuer(
	bucket *Bucket,
	collections repositories.CollectionRepository,
	cards repositories.CardRepository,
	packs repositories.PackRepository,
) *Issuer {
	return &Issuer{
		bucket:      bucket,
		collections: collections,
		cards:       cards,
		packs:       packs,
		randIntn:    rand.Intn,
		now:         time.Now,
	}
}

// Open spends a token and issues a ten-card pack from the collection. Draws
// are with replacement; the last slot is drawn from the above-common pool so
// every pack holds at least one uncommon-or-better card. Token consumption
// and card issuance are separate steps, the token is spent first.
func (i *Issuer) Open(ctx context.Context, userID, collectionID string) (*OpenResult, error) {
	if _, err := i.collections.GetByID(ctx, collectionID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}

	pool, err := i.cards.GetByCollectionID(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	rarePool := lo.Filter(pool, func(c *models.Card, _ int) bool { return c.AboveCommon() })
	if len(pool) == 0 || len(rarePool) == 0 {
		return nil, ErrCardPoolEmpty
	}

	user, err := i.bucket.Consume(ctx, userID)
	if err != nil {
		return nil, err
	}

	drawn := make([]*models.Card, 0, PackSize)
	for range uniformDraws {
		drawn = append(drawn, pool[i.randIntn(len(pool))])
	}
	drawn = append(drawn, rarePool[i.randIntn(len(rarePool))])

	openedAt := i.now()
	userCards, err := i.packs.IssueCards(ctx, userID, collectionID, drawn, openedAt)
	if err != nil {
		return nil, err
	}

	slog.Info("Pack opened",
		slog.String("user_id", userID),
		slog.String("collection_id", collectionID),
		slog.Int("cards", len(drawn)),
		slog.Int("tokens_remaining", user.PackTokens))

	return &OpenResult{
		Cards:     drawn,
		UserCards: userCards,
		Tokens:    user.PackTokens,
		OpenedAt:  openedAt,
	}, nil
}
