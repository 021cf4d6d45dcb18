package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletledger/internal/identity"
)

// RegisterUserRoutes wires user creation, lookup and removal.
func RegisterUserRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/users", h.Register)
	r.Get("/users/:userId", h.Get)
	r.Delete("/users/:userId", h.Delete)
}
