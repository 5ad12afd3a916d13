package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/tours-service/internal/service"
)

type userHandler struct {
	svc *service.UserService
}

func (h *userHandler) me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user": CurrentUser(c)},
	})
}

func (h *userHandler) list(c *fiber.Ctx) error {
	users, err := h.svc.List(c.Context(), c.Queries())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"results": len(users),
		"data":    fiber.Map{"users": users},
	})
}
