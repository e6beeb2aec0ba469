package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/seralyne/cardex/backend/utils"
	"github.com/seralyne/cardex/economy/trade"
)

type createTradeRequestInput struct {
	ToID              string `json:"to_id"`
	CardID            int64  `json:"card_id"`
	OfferedUserCardID int64  `json:"offered_user_card_id"`
	Manual            bool   `json:"manual"`
}

func (a *App) HandleCreateTradeRequest(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}

	var in createTradeRequestInput
	if err := c.BodyParser(&in); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}
	if in.ToID == "" || in.CardID == 0 {
		return utils.SendBadRequest(c, "to_id and card_id are required", nil)
	}

	req, err := a.Requests.Create(c.Context(), trade.CreateRequestParams{
		FromID:            actor,
		ToID:              in.ToID,
		CardID:            in.CardID,
		OfferedUserCardID: in.OfferedUserCardID,
		Manual:            in.Manual,
	})
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendCreated(c, req, "Trade request created")
}

// HandleAcceptTradeRequest promotes the request into a private trade. The
// response carries both the finished request and the spawned trade with its
// room code.
func (a *App) HandleAcceptTradeRequest(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid request id", nil)
	}

	req, tr, err := a.Requests.Accept(c.Context(), id, actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, fiber.Map{
		"request": req,
		"trade":   tr,
	}, "Trade request accepted")
}

func (a *App) HandleRejectTradeRequest(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid request id", nil)
	}

	req, err := a.Requests.Reject(c.Context(), id, actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, req, "Trade request rejected")
}

func (a *App) HandleCancelTradeRequest(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid request id", nil)
	}

	req, err := a.Requests.Cancel(c.Context(), id, actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, req, "Trade request cancelled")
}

func (a *App) HandleTradeRequestInbox(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}

	reqs, err := a.Requests.Inbox(c.Context(), actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, reqs, "")
}

func (a *App) HandleTradeRequestOutbox(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}

	reqs, err := a.Requests.Outbox(c.Context(), actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, reqs, "")
}
