package trade

import (
	"context"
	"errors"
	"log/slog"

	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/database/repositories"
)

// InviteBroker manages friend-to-friend private room invitations.
type InviteBroker struct {
	invites repositories.FriendInviteRepository
	users   repositories.UserRepository
	ledger  *Ledger
}

func NewInviteBroker(
	invites repositories.FriendInviteRepository,
	users repositories.UserRepository,
	ledger *Ledger,
) *InviteBroker {
	return &InviteBroker{invites: invites, users: users, ledger: ledger}
}

// Invite creates a pending room invitation. Both accounts must list each
// other as friends; one pending invite per ordered pair.
func (b *InviteBroker) Invite(ctx context.Context, fromID, toID string) (*models.FriendInvite, error) {
	if fromID == toID {
		return nil, ErrSelfTrade
	}

	mutual, err := b.users.AreMutualFriends(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if !mutual {
		return nil, ErrFriendshipRequired
	}

	exists, err := b.invites.PendingExists(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrInviteAlreadyExists
	}

	invite := &models.FriendInvite{FromID: fromID, ToID: toID}
	if err := b.invites.Create(ctx, invite); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePending) {
			return nil, ErrInviteAlreadyExists
		}
		return nil, err
	}

	slog.Info("Friend invite created",
		slog.Int64("invite_id", invite.ID),
		slog.String("from_id", fromID),
		slog.String("to_id", toID))

	return invite, nil
}

// Accept turns a pending invite into a private trade and its room. Only the
// invited account may accept; the room code is written back for the inviter.
func (b *InviteBroker) Accept(ctx context.Context, inviteID int64, actor string) (*models.FriendInvite, *models.Trade, error) {
	invite, err := b.invites.GetByID(ctx, inviteID)
	if err != nil {
		return nil, nil, err
	}
	if invite.ToID != actor {
		return nil, nil, ErrForbidden
	}
	if invite.Status.IsTerminal() {
		return nil, nil, ErrInvalidTransition
	}

	tr, err := b.ledger.Create(ctx, CreateParams{
		InitiatorID: invite.FromID,
		ReceiverID:  invite.ToID,
		Kind:        models.TradePrivate,
	})
	if err != nil {
		return nil, nil, err
	}

	ok, err := b.invites.Finish(ctx, inviteID, models.RequestAccepted, tr.ID, tr.RoomCode)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		_, _ = b.ledger.trades.UpdateStatusIfPending(ctx, tr.ID, models.TradeCancelled)
		return nil, nil, ErrInvalidTransition
	}

	invite.Status = models.RequestAccepted
	invite.TradeID = tr.ID
	invite.RoomCode = tr.RoomCode

	slog.Info("Friend invite accepted",
		slog.Int64("invite_id", invite.ID),
		slog.String("room_code", tr.RoomCode))

	return invite, tr, nil
}

// Reject closes a pending invite. Only the invited account may reject.
func (b *InviteBroker) Reject(ctx context.Context, inviteID int64, actor string) (*models.FriendInvite, error) {
	invite, err := b.invites.GetByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if invite.ToID != actor {
		return nil, ErrForbidden
	}
	if invite.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	ok, err := b.invites.Finish(ctx, inviteID, models.RequestRejected, 0, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	invite.Status = models.RequestRejected
	return invite, nil
}

// ListFor returns invites the account sent or received.
func (b *InviteBroker) ListFor(ctx context.Context, actor string) ([]*models.FriendInvite, error) {
	return b.invites.GetUserInvites(ctx, actor)
}
