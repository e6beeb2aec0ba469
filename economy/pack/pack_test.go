package pack_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/database/repositories"
	"github.com/seralyne/cardex/economy/pack"
)

// fakePackRepo reproduces the single-row locked bucket mutation and card
// issuance of the real repository in memory.
type fakePackRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int64
	owned []*models.UserCard
	opens []*models.PackOpen
}

func newFakePackRepo(users ...*models.User) *fakePackRepo {
	r := &fakePackRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r
}

func (r *fakePackRepo) ConsumeToken(_ context.Context, userID string, capacity int, interval time.Duration, now time.Time) (*models.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, false, repositories.ErrNotFound
	}
	u.RefillPackTokens(now, interval, capacity)
	if u.PackTokens <= 0 {
		cp := *u
		return &cp, false, nil
	}
	u.PackTokens--
	cp := *u
	return &cp, true, nil
}

func (r *fakePackRepo) RefreshBucket(_ context.Context, userID string, capacity int, interval time.Duration, now time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	u.RefillPackTokens(now, interval, capacity)
	cp := *u
	return &cp, nil
}

func (r *fakePackRepo) ResetBucket(_ context.Context, userID string, capacity int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.PackTokens = capacity
	u.PackRefillAt = now
	return nil
}

func (r *fakePackRepo) IssueCards(_ context.Context, userID, collectionID string, cards []*models.Card, now time.Time) ([]*models.UserCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.UserCard, 0, len(cards))
	ids := make([]int64, 0, len(cards))
	for _, c := range cards {
		r.seq++
		uc := &models.UserCard{ID: r.seq, UserID: userID, CardID: c.ID, Obtained: now}
		r.owned = append(r.owned, uc)
		out = append(out, uc)
		ids = append(ids, c.ID)
	}
	r.opens = append(r.opens, &models.PackOpen{
		UserID:       userID,
		CollectionID: collectionID,
		CardIDs:      ids,
		OpenedAt:     now,
	})
	return out, nil
}

func (r *fakePackRepo) CountOpensSince(_ context.Context, userID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.opens {
		if o.UserID == userID && !o.OpenedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// rewindRefill moves the bucket clock back so a refill interval appears to
// have elapsed without sleeping in the test.
func (r *fakePackRepo) rewindRefill(userID string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	u.PackRefillAt = u.PackRefillAt.Add(-d)
}

type fakeCollectionRepo struct {
	cols map[string]*models.Collection
}

func newFakeCollectionRepo(cols ...*models.Collection) *fakeCollectionRepo {
	r := &fakeCollectionRepo{cols: make(map[string]*models.Collection)}
	for _, c := range cols {
		cp := *c
		r.cols[c.ID] = &cp
	}
	return r
}

func (r *fakeCollectionRepo) Create(_ context.Context, col *models.Collection) error {
	cp := *col
	r.cols[col.ID] = &cp
	return nil
}

func (r *fakeCollectionRepo) GetByID(_ context.Context, id string) (*models.Collection, error) {
	c, ok := r.cols[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCollectionRepo) GetAll(_ context.Context) ([]*models.Collection, error) {
	var out []*models.Collection
	for _, c := range r.cols {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type fakeCardRepo struct {
	cards map[int64]*models.Card
}

func newFakeCardRepo(cards ...*models.Card) *fakeCardRepo {
	r := &fakeCardRepo{cards: make(map[int64]*models.Card)}
	for _, c := range cards {
		cp := *c
		r.cards[c.ID] = &cp
	}
	return r
}

func (r *fakeCardRepo) Create(_ context.Context, card *models.Card) error {
	cp := *card
	r.cards[card.ID] = &cp
	return nil
}

func (r *fakeCardRepo) GetByID(_ context.Context, id int64) (*models.Card, error) {
	c, ok := r.cards[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCardRepo) GetByIDs(_ context.Context, ids []int64) ([]*models.Card, error) {
	var out []*models.Card
	for _, id := range ids {
		if c, ok := r.cards[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCardRepo) GetByCollectionID(_ context.Context, colID string) ([]*models.Card, error) {
	var out []*models.Card
	for _, c := range r.cards {
		if c.ColID == colID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func TestBucketConsumeSequence(t *testing.T) {
	repo := newFakePackRepo(&models.User{ID: "100", PackTokens: 2, PackRefillAt: time.Now()})
	bucket := pack.NewBucket(repo, 2, 6*time.Hour)

	// Two banked tokens spend, the third call is rate limited.
	for i := 0; i < 2; i++ {
		_, err := bucket.Consume(context.Background(), "100")
		require.NoError(t, err, "consume %d", i+1)
	}

	_, err := bucket.Consume(context.Background(), "100")
	rl, ok := pack.AsRateLimited(err)
	require.True(t, ok, "expected rate limited, got %v", err)
	assert.False(t, rl.NextAllowed.IsZero())

	// One full interval later the bucket holds one token again.
	repo.rewindRefill("100", 6*time.Hour)
	_, err = bucket.Consume(context.Background(), "100")
	require.NoError(t, err)
}

func TestBucketStatus(t *testing.T) {
	now := time.Now()
	repo := newFakePackRepo(&models.User{ID: "100", PackTokens: 1, PackRefillAt: now})
	bucket := pack.NewBucket(repo, 2, 6*time.Hour)

	st, err := bucket.Status(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Tokens)
	assert.Equal(t, 2, st.Capacity)
	assert.Equal(t, 0, st.OpensLast24h)
	require.NotNil(t, st.NextTokenAt)
	assert.WithinDuration(t, now.Add(6*time.Hour), *st.NextTokenAt, time.Second)

	// A full bucket reports no next-token instant.
	require.NoError(t, bucket.Reset(context.Background(), "100"))
	st, err = bucket.Status(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Tokens)
	assert.Nil(t, st.NextTokenAt)
}

func TestBucketNeverExceedsCapacity(t *testing.T) {
	repo := newFakePackRepo(&models.User{ID: "100", PackTokens: 2, PackRefillAt: time.Now()})
	bucket := pack.NewBucket(repo, 2, 6*time.Hour)

	// A week of idling banks nothing beyond the cap.
	repo.rewindRefill("100", 7*24*time.Hour)
	st, err := bucket.Status(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Tokens)
}

func issuerFixture(cards ...*models.Card) (*pack.Issuer, *fakePackRepo) {
	repo := newFakePackRepo(&models.User{ID: "100", PackTokens: 2, PackRefillAt: time.Now()})
	bucket := pack.NewBucket(repo, 2, 6*time.Hour)
	cols := newFakeCollectionRepo(&models.Collection{ID: "base", Name: "Base Set"})
	return pack.NewIssuer(bucket, cols, newFakeCardRepo(cards...), repo), repo
}

func TestIssuerOpen(t *testing.T) {
	issuer, repo := issuerFixture(
		&models.Card{ID: 1, Name: "Comet Fox", Level: models.LevelCommon, ColID: "base"},
		&models.Card{ID: 2, Name: "Tide Caller", Level: models.LevelCommon, ColID: "base"},
		&models.Card{ID: 3, Name: "Astral Wyrm", Level: models.LevelLegendary, ColID: "base"},
	)

	result, err := issuer.Open(context.Background(), "100", "base")
	require.NoError(t, err)

	require.Len(t, result.Cards, pack.PackSize)
	require.Len(t, result.UserCards, pack.PackSize)
	assert.Equal(t, 1, result.Tokens)

	// The guaranteed slot is always above common.
	rare := result.Cards[pack.PackSize-1]
	assert.True(t, rare.AboveCommon(), "last draw level = %d", rare.Level)

	for _, uc := range result.UserCards {
		assert.Equal(t, "100", uc.UserID)
	}

	// The open shows up in the status diagnostic count.
	st, err := pack.NewBucket(repo, 2, 6*time.Hour).Status(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 1, st.OpensLast24h)
}

func TestIssuerOpenAlwaysHasRare(t *testing.T) {
	issuer, _ := issuerFixture(
		&models.Card{ID: 1, Name: "Comet Fox", Level: models.LevelCommon, ColID: "base"},
		&models.Card{ID: 2, Name: "Astral Wyrm", Level: models.LevelEpic, ColID: "base"},
	)

	for i := 0; i < 2; i++ {
		result, err := issuer.Open(context.Background(), "100", "base")
		require.NoError(t, err)
		found := false
		for _, c := range result.Cards {
			if c.AboveCommon() {
				found = true
				break
			}
		}
		assert.True(t, found, "pack %d has no card above common", i+1)
	}
}

func TestIssuerOpenErrors(t *testing.T) {
	issuer, _ := issuerFixture(
		&models.Card{ID: 1, Name: "Comet Fox", Level: models.LevelCommon, ColID: "base"},
	)

	_, err := issuer.Open(context.Background(), "100", "missing")
	require.ErrorIs(t, err, pack.ErrSetNotFound)

	// Only common cards means the rare slot cannot be filled.
	_, err = issuer.Open(context.Background(), "100", "base")
	require.ErrorIs(t, err, pack.ErrCardPoolEmpty)
}

func TestIssuerOpenRateLimited(t *testing.T) {
	issuer, _ := issuerFixture(
		&models.Card{ID: 1, Name: "Comet Fox", Level: models.LevelCommon, ColID: "base"},
		&models.Card{ID: 2, Name: "Astral Wyrm", Level: models.LevelRare, ColID: "base"},
	)

	for i := 0; i < 2; i++ {
		_, err := issuer.Open(context.Background(), "100", "base")
		require.NoError(t, err)
	}

	_, err := issuer.Open(context.Background(), "100", "base")
	_, ok := pack.AsRateLimited(err)
	require.True(t, ok, "expected rate limited, got %v", err)
}
