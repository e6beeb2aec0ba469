package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/seralyne/cardex/backend/utils"
	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/economy/trade"
)

type tradeCardInput struct {
	UserCardID     int64 `json:"user_card_id"`
	EstimatedValue int64 `json:"estimated_value"`
}

type createTradeInput struct {
	ReceiverID     string           `json:"receiver_id"`
	Kind           string           `json:"kind"`
	InitiatorCards []tradeCardInput `json:"initiator_cards"`
	ReceiverCards  []tradeCardInput `json:"receiver_cards"`
}

type completeTradeInput struct {
	UserCardID     int64 `json:"user_card_id"`
	EstimatedValue int64 `json:"estimated_value"`
}

type setTradeStatusInput struct {
	Status string `json:"status"`
}

// HandleCreateTrade opens a trade directly, public by default. The fairness
// gate runs on the offered-card values before anything persists.
func (a *App) HandleCreateTrade(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}

	var in createTradeInput
	if err := c.BodyParser(&in); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}
	if in.ReceiverID == "" {
		return utils.SendBadRequest(c, "receiver_id is required", nil)
	}

	kind := models.TradeKind(in.Kind)
	switch kind {
	case "":
		kind = models.TradePublic
	case models.TradePublic, models.TradePrivate:
	default:
		return utils.SendBadRequest(c, "kind must be public or private", nil)
	}

	params := trade.CreateParams{
		InitiatorID:    actor,
		ReceiverID:     in.ReceiverID,
		Kind:           kind,
		InitiatorCards: a.resolveCards(c, actor, in.InitiatorCards),
		ReceiverCards:  a.resolveCards(c, in.ReceiverID, in.ReceiverCards),
	}

	tr, err := a.Ledger.Create(c.Context(), params)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendCreated(c, tr, "Trade created")
}

// HandleCompleteTrade records the caller's pick and tries the atomic
// completion. The answer is either the waiting status or the completed trade.
func (a *App) HandleCompleteTrade(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	tradeID, err := parseID(c)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid trade id", nil)
	}

	var in completeTradeInput
	if err := c.BodyParser(&in); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}
	if in.UserCardID == 0 {
		return utils.SendBadRequest(c, "user_card_id is required", nil)
	}

	result, err := a.Ledger.Confirm(c.Context(), tradeID, actor, in.UserCardID, in.EstimatedValue)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, fiber.Map{
		"status": result.Outcome,
		"trade":  result.Trade,
	}, "")
}

// HandleSetTradeStatus rejects or cancels a pending trade.
func (a *App) HandleSetTradeStatus(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	tradeID, err := parseID(c)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid trade id", nil)
	}

	var in setTradeStatusInput
	if err := c.BodyParser(&in); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}

	status := models.TradeStatus(in.Status)
	if status != models.TradeRejected && status != models.TradeCancelled {
		return utils.SendBadRequest(c, "status must be rejected or cancelled", nil)
	}

	tr, err := a.Ledger.SetStatus(c.Context(), tradeID, actor, status)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, tr, "Trade updated")
}

func (a *App) HandleGetTrade(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}
	tradeID, err := parseID(c)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid trade id", nil)
	}

	tr, err := a.Ledger.Get(c.Context(), tradeID, actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, tr, "")
}

func (a *App) HandleListTrades(c *fiber.Ctx) error {
	actor, ok := utils.AccountID(c)
	if !ok {
		return utils.SendUnauthorized(c, "Not authenticated")
	}

	trades, err := a.Ledger.ListFor(c.Context(), actor)
	if err != nil {
		return sendDomainError(c, err)
	}
	return utils.SendSuccess(c, trades, "")
}

// resolveCards fills catalog card ids for offered instance cards. Ownership
// of the actor's own cards is enforced at confirmation; here the list is
// advisory cargo for the fairness gate, so lookup failures leave the catalog
// id unset rather than failing the create.
func (a *App) resolveCards(c *fiber.Ctx, ownerID string, in []tradeCardInput) []models.TradeCard {
	out := make([]models.TradeCard, 0, len(in))
	for _, tc := range in {
		card := models.TradeCard{
			UserCardID:     tc.UserCardID,
			EstimatedValue: tc.EstimatedValue,
		}
		if owned, err := a.UserCards.GetOwned(c.Context(), ownerID, tc.UserCardID); err == nil {
			card.CardID = owned.CardID
		}
		out = append(out, card)
	}
	return out
}

func parseID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
