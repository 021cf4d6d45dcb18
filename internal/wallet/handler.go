package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance returns the balance of the user in the path.
func (h *Handler) Balance(c *fiber.Ctx) error {
	owner, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, "user not found")
	}
	balance, err := h.service.Balance(c.UserContext(), owner)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id":   balance.OwnerID,
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}
