package trade

import "errors"

var (
	// ErrSelfTrade rejects any exchange where both sides are the same account.
	ErrSelfTrade = errors.New("an account cannot trade with itself")

	// ErrForbidden marks an actor that is not authorized for the mutation.
	ErrForbidden = errors.New("actor is not a party to this exchange")

	// ErrInvalidTransition marks a mutation attempt on a terminal record.
	ErrInvalidTransition = errors.New("record is no longer open for this transition")

	// ErrRequestedCardMismatch is returned when the fulfilling party confirms
	// with a card other than the one the request demanded.
	ErrRequestedCardMismatch = errors.New("selected card does not match the requested card")

	// ErrDuplicateRequest enforces one pending request per (from, to, card).
	ErrDuplicateRequest = errors.New("a pending request for this card already exists")

	// ErrInviteAlreadyExists enforces one pending invite per (from, to).
	ErrInviteAlreadyExists = errors.New("a pending invite already exists")

	// ErrFriendshipRequired gates friend-room invitations.
	ErrFriendshipRequired = errors.New("accounts must be mutual friends")

	// ErrCardNotOwned is returned when the actor does not own the card they
	// are offering or picking.
	ErrCardNotOwned = errors.New("card is not owned by this account")
)
