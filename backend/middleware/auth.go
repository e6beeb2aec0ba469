package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/seralyne/cardex/backend/utils"
	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/database/repositories"
)

// IdentityResolver maps a bearer token to an account.
type IdentityResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// DBIdentityResolver resolves tokens against the users table.
type DBIdentityResolver struct {
	Users repositories.UserRepository
}

func (r *DBIdentityResolver) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	return r.Users.GetByToken(ctx, token)
}

// AuthRequired authenticates the bearer token and stores the account in the
// request context. Account IDs are snowflakes; anything else in the users
// table is data corruption and gets rejected here.
func AuthRequired(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return utils.SendUnauthorized(c, "Missing bearer token")
		}

		user, err := resolver.ResolveToken(c.Context(), token)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return utils.SendUnauthorized(c, "Invalid token")
			}
			slog.Error("Auth: token lookup failed", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Authentication failed")
		}

		if _, err := snowflake.Parse(user.ID); err != nil {
			slog.Warn("Auth: account id is not a snowflake",
				slog.String("account_id", user.ID))
			return utils.SendUnauthorized(c, "Invalid account")
		}

		c.Locals("account_id", user.ID)
		c.Locals("account", user)

		return c.Next()
	}
}

// AdminRequired gates operator endpoints behind a shared admin code. It
// stacks on top of AuthRequired.
func AdminRequired(adminCode string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminCode == "" || c.Get("X-Admin-Code") != adminCode {
			accountID, _ := utils.AccountID(c)
			slog.Warn("Admin required: bad admin code",
				slog.String("account_id", accountID))
			return utils.SendForbidden(c, "Admin access required")
		}
		return c.Next()
	}
}
