package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/seralyne/cardex/backend/models"
	"github.com/seralyne/cardex/backend/utils"
)

func (a *App) HandleHealth(c *fiber.Ctx) error {
	health := models.NewHealthCheck(a.Version)

	if err := a.DB.Ping(c.Context()); err != nil {
		health.AddComponent("database", "unhealthy", err.Error())
	} else {
		health.AddComponent("database", "healthy", "")
	}

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	return utils.SendJSON(c, status, health)
}
