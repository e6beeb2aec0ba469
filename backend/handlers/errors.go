package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/seralyne/cardex/backend/utils"
	"github.com/seralyne/cardex/database/repositories"
	"github.com/seralyne/cardex/economy/fairness"
	"github.com/seralyne/cardex/economy/pack"
	"github.com/seralyne/cardex/economy/trade"
)

// sendDomainError maps an economy-layer error onto the wire taxonomy. Every
// domain operation resolves to a known code; only genuinely unexpected
// failures fall through to a 500.
func sendDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return utils.SendNotFound(c, "NOT_FOUND", "Record not found")
	case errors.Is(err, trade.ErrSelfTrade):
		return utils.SendError(c, http.StatusBadRequest, "SELF_TRADE",
			"An account cannot trade with itself", nil)
	case errors.Is(err, trade.ErrForbidden):
		return utils.SendForbidden(c, "You are not a party to this record")
	case errors.Is(err, trade.ErrInvalidTransition):
		return utils.SendConflict(c, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, trade.ErrDuplicateRequest):
		return utils.SendConflict(c, "DUPLICATE_REQUEST", err.Error(), nil)
	case errors.Is(err, trade.ErrInviteAlreadyExists):
		return utils.SendConflict(c, "INVITE_ALREADY_EXISTS", err.Error(), nil)
	case errors.Is(err, trade.ErrFriendshipRequired):
		return utils.SendError(c, http.StatusForbidden, "FRIENDSHIP_REQUIRED",
			err.Error(), nil)
	case errors.Is(err, trade.ErrRequestedCardMismatch):
		return utils.SendUnprocessableEntity(c, "REQUESTED_CARD_MISMATCH", err.Error(), nil)
	case errors.Is(err, trade.ErrCardNotOwned):
		return utils.SendUnprocessableEntity(c, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, fairness.ErrValueDiffTooHigh):
		return utils.SendUnprocessableEntity(c, "VALUE_DIFF_TOO_HIGH", err.Error(), nil)
	case errors.Is(err, pack.ErrSetNotFound):
		return utils.SendNotFound(c, "SET_NOT_FOUND", err.Error())
	case errors.Is(err, pack.ErrCardPoolEmpty):
		return utils.SendUnprocessableEntity(c, "CARD_POOL_EMPTY", err.Error(), nil)
	}

	if rl, ok := pack.AsRateLimited(err); ok {
		return utils.SendTooManyRequests(c, "RATE_LIMITED", "No pack tokens available",
			map[string]string{"nextAllowed": rl.NextAllowed.UTC().Format(time.RFC3339)})
	}

	slog.Error("Unhandled domain error", slog.Any("error", err))
	return utils.SendInternalServerError(c, "Internal server error")
}
