package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/seralyne/cardex/backend/utils"
)

type createInviteInput struct {
	ToID string `json:"to_id"`
}

func (a *App) HandleCreateInvite(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}

	var in createInviteInput
	if err := c.BodyParser(&in); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}
	if in.ToID == "" {
		return utils.SendBadRequest(c, "to_id is required", nil)
	}

	invite, err := a.Invites.Invite(c.Context(), actor, in.ToID)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendCreated(c, invite, "Invite created")
}

// HandleAcceptInvite spawns the private trade and returns its room code so
// both friends can connect to the live room.
func (a *App) HandleAcceptInvite(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid invite id", nil)
	}

	invite, tr, err := a.Invites.Accept(c.Context(), id, actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, fiber.Map{
		"invite":    invite,
		"trade":     tr,
		"room_code": tr.RoomCode,
	}, "Invite accepted")
}

func (a *App) HandleRejectInvite(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	id, err := parseID(c)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid invite id", nil)
	}

	invite, err := a.Invites.Reject(c.Context(), id, actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, invite, "Invite rejected")
}

func (a *App) HandleListInvites(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}

	invites, err := a.Invites.ListFor(c.Context(), actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, invites, "")
}
