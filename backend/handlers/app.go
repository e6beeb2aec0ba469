package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/seralyne/cardex/backend/middleware"
	"github.com/seralyne/cardex/database"
	"github.com/seralyne/cardex/database/repositories"
	"github.com/seralyne/cardex/economy/pack"
	"github.com/seralyne/cardex/economy/trade"
	"github.com/seralyne/cardex/rooms"
)

// App bundles the REST surface with all its dependencies.
type App struct {
	DB *database.DB

	Users       repositories.UserRepository
	Cards       repositories.CardRepository
	UserCards   repositories.UserCardRepository
	Collections repositories.CollectionRepository

	Ledger   *trade.Ledger
	Requests *trade.RequestBroker
	Invites  *trade.InviteBroker
	Bucket   *pack.Bucket
	Issuer   *pack.Issuer
	Rooms    *rooms.Coordinator

	AdminCode string
	Version   string
}

// SetupRoutes mounts middleware and every endpoint on the fiber app.
func (a *App) SetupRoutes(app *fiber.App) {
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(cors.New())
	app.Use(middleware.LoggingMiddleware())

	app.Get("/health", a.HandleHealth)

	resolver := &middleware.DBIdentityResolver{Users: a.Users}

	api := app.Group("/api/v1",
		middleware.APIRateLimit(),
		middleware.AuthRequired(resolver))

	api.Post("/trades", a.HandleCreateTrade)
	api.Get("/trades", a.HandleListTrades)
	api.Get("/trades/:id", a.HandleGetTrade)
	api.Post("/trades/:id/complete", a.HandleCompleteTrade)
	api.Patch("/trades/:id", a.HandleSetTradeStatus)

	api.Post("/trade-requests", a.HandleCreateTradeRequest)
	api.Get("/trade-requests/inbox", a.HandleTradeRequestInbox)
	api.Get("/trade-requests/outbox", a.HandleTradeRequestOutbox)
	api.Post("/trade-requests/:id/accept", a.HandleAcceptTradeRequest)
	api.Post("/trade-requests/:id/reject", a.HandleRejectTradeRequest)
	api.Delete("/trade-requests/:id/cancel", a.HandleCancelTradeRequest)

	api.Post("/friend-trade-rooms/invite", a.HandleCreateInvite)
	api.Get("/friend-trade-rooms/invites", a.HandleListInvites)
	api.Post("/friend-trade-rooms/invites/:id/accept", a.HandleAcceptInvite)
	api.Post("/friend-trade-rooms/invites/:id/reject", a.HandleRejectInvite)

	api.Post("/users/:id/open-pack", a.HandleOpenPack)
	api.Get("/users/:id/pack-status", a.HandlePackStatus)
	api.Post("/users/:id/pack-reset",
		middleware.AdminRequired(a.AdminCode), a.HandlePackReset)

	api.Get("/collections", a.HandleListCollections)
	api.Get("/collections/:id/cards", a.HandleListCollectionCards)
	api.Get("/users/:id/cards", a.HandleListUserCards)

	a.mountRoomRoutes(app, resolver)
}
