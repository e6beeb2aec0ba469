package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/seralyne/cardex/backend/middleware"
	"github.com/seralyne/cardex/backend/utils"
	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/database/repositories"
)

// mountRoomRoutes wires the live-room websocket endpoint. Browsers cannot set
// an Authorization header on a websocket handshake, so the token travels in
// the query string and is resolved before the upgrade.
func (a *App) mountRoomRoutes(app *fiber.App, resolver middleware.IdentityResolver) {
	app.Get("/ws/rooms/:code", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		if token == "" {
			return utils.SendUnauthorized(c, "Missing token")
		}
		user, err := resolver.ResolveToken(c.Context(), token)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return utils.SendUnauthorized(c, "Invalid token")
			}
			return utils.SendInternalServerError(c, "Authentication failed")
		}

		roomCode := c.Params("code")
		tr, err := a.Ledger.GetByRoomCode(c.Context(), roomCode)
		if err != nil {
			return sendDomainError(c, err)
		}
		if tr.SideOf(user.ID) == models.SideNone {
			return utils.SendForbidden(c, "You are not a party to this room")
		}

		c.Locals("account_id", user.ID)
		return c.Next()
	}, websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("account_id").(string)
		roomCode := conn.Params("code")
		a.Rooms.Serve(conn, userID, roomCode)
	}))
}
