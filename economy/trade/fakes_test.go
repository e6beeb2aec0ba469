package trade_test

import (
	"context"
	"sync"
	"time"

	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/database/repositories"
	"github.com/seralyne/cardex/economy/fairness"
)

// The fakes below mirror the conditional-write semantics of the real
// repositories, including the single atomic completion step, so the service
// layer can be exercised without a database.

type fakeUserCardRepo struct {
	mu    sync.Mutex
	seq   int64
	cards map[int64]*models.UserCard
}

func newFakeUserCardRepo() *fakeUserCardRepo {
	return &fakeUserCardRepo{cards: make(map[int64]*models.UserCard)}
}

func (r *fakeUserCardRepo) Create(_ context.Context, uc *models.UserCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	uc.ID = r.seq
	cp := *uc
	r.cards[uc.ID] = &cp
	return nil
}

func (r *fakeUserCardRepo) GetByID(_ context.Context, id int64) (*models.UserCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uc, ok := r.cards[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *uc
	return &cp, nil
}

func (r *fakeUserCardRepo) GetOwned(_ context.Context, userID string, userCardID int64) (*models.UserCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uc, ok := r.cards[userCardID]
	if !ok || uc.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	cp := *uc
	return &cp, nil
}

func (r *fakeUserCardRepo) GetAllByUserID(_ context.Context, userID string) ([]*models.UserCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.UserCard
	for _, uc := range r.cards {
		if uc.UserID == userID {
			cp := *uc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeUserCardRepo) ownerOf(userCardID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if uc, ok := r.cards[userCardID]; ok {
		return uc.UserID
	}
	return ""
}

// transfer swaps the owner only when the expected owner still holds the card.
func (r *fakeUserCardRepo) transfer(userCardID int64, from, to string) bool {
	uc, ok := r.cards[userCardID]
	if !ok || uc.UserID != from {
		return false
	}
	uc.UserID = to
	return true
}

type fakeTradeRepo struct {
	mu     sync.Mutex
	seq    int64
	trades map[int64]*models.Trade
	owners *fakeUserCardRepo
}

func newFakeTradeRepo(owners *fakeUserCardRepo) *fakeTradeRepo {
	return &fakeTradeRepo{trades: make(map[int64]*models.Trade), owners: owners}
}

func (r *fakeTradeRepo) Create(_ context.Context, tr *models.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	tr.ID = r.seq
	tr.Status = models.TradePending
	tr.CreatedAt = time.Now()
	cp := *tr
	r.trades[tr.ID] = &cp
	return nil
}

func (r *fakeTradeRepo) GetByID(_ context.Context, id int64) (*models.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.trades[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *tr
	return &cp, nil
}

func (r *fakeTradeRepo) GetByTradeID(_ context.Context, tradeID string) (*models.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tr := range r.trades {
		if tr.TradeID == tradeID {
			cp := *tr
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeTradeRepo) GetByRoomCode(_ context.Context, roomCode string) (*models.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tr := range r.trades {
		if tr.RoomCode == roomCode && roomCode != "" {
			cp := *tr
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeTradeRepo) GetUserTrades(_ context.Context, userID string) ([]*models.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Trade
	for _, tr := range r.trades {
		if tr.InitiatorID == userID || tr.ReceiverID == userID {
			cp := *tr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTradeRepo) SavePick(_ context.Context, tradeID int64, side models.TradeSide, pick models.TradeCard) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.trades[tradeID]
	if !ok || tr.Status != models.TradePending {
		return false, nil
	}
	if side == models.SideInitiator {
		p := pick
		tr.InitiatorPick = &p
		tr.InitiatorConfirmed = true
	} else {
		p := pick
		tr.ReceiverPick = &p
		tr.ReceiverConfirmed = true
	}
	tr.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeTradeRepo) Complete(_ context.Context, tradeID int64) (*models.Trade, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.trades[tradeID]
	if !ok {
		return nil, false, repositories.ErrNotFound
	}
	if tr.Status != models.TradePending || !tr.BothConfirmed() {
		cp := *tr
		return &cp, false, nil
	}

	initTotal, recvTotal := tr.PickTotals()
	pct, err := fairness.Validate(initTotal, recvTotal, tr.Kind)
	if err != nil {
		return nil, false, err
	}

	r.owners.mu.Lock()
	okA := r.owners.transfer(tr.InitiatorPick.UserCardID, tr.InitiatorID, tr.ReceiverID)
	okB := r.owners.transfer(tr.ReceiverPick.UserCardID, tr.ReceiverID, tr.InitiatorID)
	r.owners.mu.Unlock()
	if !okA || !okB {
		return nil, false, repositories.ErrNotFound
	}

	tr.Status = models.TradeCompleted
	tr.InitiatorValue = initTotal
	tr.ReceiverValue = recvTotal
	tr.ValueDiffPct = pct
	tr.CompletedAt = time.Now()
	cp := *tr
	return &cp, true, nil
}

func (r *fakeTradeRepo) UpdateStatusIfPending(_ context.Context, tradeID int64, status models.TradeStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.trades[tradeID]
	if !ok || tr.Status != models.TradePending {
		return false, nil
	}
	tr.Status = status
	tr.UpdatedAt = time.Now()
	return true, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	rejected  []string
}

func (n *fakeNotifier) TradeCompleted(roomCode string, _ *models.Trade) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, roomCode)
}

func (n *fakeNotifier) TradeRejected(roomCode string, _ *models.Trade) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, roomCode)
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	seq      int64
	requests map[int64]*models.TradeRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[int64]*models.TradeRequest)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *models.TradeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.Status == models.RequestPending &&
			existing.FromID == req.FromID && existing.ToID == req.ToID &&
			existing.CardID == req.CardID {
			return repositories.ErrDuplicatePending
		}
	}
	r.seq++
	req.ID = r.seq
	req.Status = models.RequestPending
	req.CreatedAt = time.Now()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id int64) (*models.TradeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) GetInbox(_ context.Context, userID string) ([]*models.TradeRequest, error) {
	return r.list(func(req *models.TradeRequest) bool { return req.ToID == userID })
}

func (r *fakeRequestRepo) GetOutbox(_ context.Context, userID string) ([]*models.TradeRequest, error) {
	return r.list(func(req *models.TradeRequest) bool { return req.FromID == userID })
}

func (r *fakeRequestRepo) list(match func(*models.TradeRequest) bool) ([]*models.TradeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TradeRequest
	for _, req := range r.requests {
		if match(req) {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) PendingExists(_ context.Context, fromID, toID string, cardID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.Status == models.RequestPending &&
			req.FromID == fromID && req.ToID == toID && req.CardID == cardID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRequestRepo) Finish(_ context.Context, id int64, status models.RequestStatus, tradeID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != models.RequestPending {
		return false, nil
	}
	req.Status = status
	req.FinishedAt = time.Now()
	if tradeID != 0 {
		req.TradeID = tradeID
	}
	return true, nil
}

func (r *fakeRequestRepo) MarkCompleted(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != models.RequestAccepted {
		return false, nil
	}
	req.Status = models.RequestCompleted
	return true, nil
}

func (r *fakeRequestRepo) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, req := range r.requests {
		if req.Status != models.RequestPending && !req.FinishedAt.IsZero() && req.FinishedAt.Before(cutoff) {
			delete(r.requests, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeInviteRepo struct {
	mu      sync.Mutex
	seq     int64
	invites map[int64]*models.FriendInvite
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{invites: make(map[int64]*models.FriendInvite)}
}

func (r *fakeInviteRepo) Create(_ context.Context, invite *models.FriendInvite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.invites {
		if existing.Status == models.RequestPending &&
			existing.FromID == invite.FromID && existing.ToID == invite.ToID {
			return repositories.ErrDuplicatePending
		}
	}
	r.seq++
	invite.ID = r.seq
	invite.Status = models.RequestPending
	invite.CreatedAt = time.Now()
	cp := *invite
	r.invites[invite.ID] = &cp
	return nil
}

func (r *fakeInviteRepo) GetByID(_ context.Context, id int64) (*models.FriendInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite, ok := r.invites[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *invite
	return &cp, nil
}

func (r *fakeInviteRepo) GetUserInvites(_ context.Context, userID string) ([]*models.FriendInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FriendInvite
	for _, invite := range r.invites {
		if invite.FromID == userID || invite.ToID == userID {
			cp := *invite
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) PendingExists(_ context.Context, fromID, toID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, invite := range r.invites {
		if invite.Status == models.RequestPending &&
			invite.FromID == fromID && invite.ToID == toID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeInviteRepo) Finish(_ context.Context, id int64, status models.RequestStatus, tradeID int64, roomCode string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite, ok := r.invites[id]
	if !ok || invite.Status != models.RequestPending {
		return false, nil
	}
	invite.Status = status
	invite.FinishedAt = time.Now()
	if tradeID != 0 {
		invite.TradeID = tradeID
	}
	if roomCode != "" {
		invite.RoomCode = roomCode
	}
	return true, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByToken(_ context.Context, token string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.APIToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) AreMutualFriends(_ context.Context, a, b string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ua, okA := r.users[a]
	ub, okB := r.users[b]
	if !okA || !okB {
		return false, nil
	}
	return ua.IsFriendOf(b) && ub.IsFriendOf(a), nil
}

type fakeCardRepo struct {
	mu    sync.Mutex
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
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *card
	r.cards[card.ID] = &cp
	return nil
}

func (r *fakeCardRepo) GetByID(_ context.Context, id int64) (*models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCardRepo) GetByIDs(_ context.Context, ids []int64) ([]*models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Card
	for _, c := range r.cards {
		if c.ColID == colID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}
