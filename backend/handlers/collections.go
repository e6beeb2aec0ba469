package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/seralyne/cardex/backend/utils"
)

func (a *App) HandleListCollections(c *fiber.Ctx) error {
	cols, err := a.Collections.GetAll(c.Context())
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, cols, "")
}

func (a *App) HandleListCollectionCards(c *fiber.Ctx) error {
	colID := c.Params("id")
	if _, err := a.Collections.GetByID(c.Context(), colID); err != nil {
		return sendDomainError(c, err)
	}

	cards, err := a.Cards.GetByCollectionID(c.Context(), colID)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, cards, "")
}

// HandleListUserCards lists owned card instances. Collections are public
// information, so any authenticated account may browse another's binder.
func (a *App) HandleListUserCards(c *fiber.Ctx) error {
	userID := c.Params("id")
	if _, err := a.Users.GetByID(c.Context(), userID); err != nil {
		return sendDomainError(c, err)
	}

	cards, err := a.UserCards.GetAllByUserID(c.Context(), userID)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, cards, "")
}
