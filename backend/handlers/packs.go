package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/seralyne/cardex/backend/utils"
)

type openPackInput struct {
	CollectionID string `json:"collection_id"`
}

// HandleOpenPack spends a token and issues a pack. Opens always act on the
// authenticated account; the path id must match it.
func (a *App) HandleOpenPack(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	if c.Params("id") != actor {
		return utils.SendForbidden(c, "Packs can only be opened for your own account")
	}

	var in openPackInput
	if err := c.BodyParser(&in); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}
	if in.CollectionID == "" {
		return utils.SendBadRequest(c, "collection_id is required", nil)
	}

	result, err := a.Issuer.Open(c.Context(), actor, in.CollectionID)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, result, "Pack opened")
}

func (a *App) HandlePackStatus(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	if c.Params("id") != actor {
		return utils.SendForbidden(c, "Pack status is private to the account")
	}

	status, err := a.Bucket.Status(c.Context(), actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, status, "")
}

// HandlePackReset refills a bucket to capacity. Operator surface, gated by
// the admin code middleware.
func (a *App) HandlePackReset(c *fiber.Ctx) error {
	targetID := c.Params("id")
	if targetID == "" {
		return utils.SendBadRequest(c, "user id is required", nil)
	}

	if err := a.Bucket.Reset(c.Context(), targetID); err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, nil, "Pack tokens reset")
}
