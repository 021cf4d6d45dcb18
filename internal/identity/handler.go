package identity

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Register creates a user and its wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), req.Name, req.Email)
	switch {
	case errors.Is(err, ErrInvalidUser):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrEmailTaken):
		return fiber.NewError(http.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	return c.Status(http.StatusCreated).JSON(user)
}

// Get returns the user in the path.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := UserIDParam(c, "userId")
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return notFound(err)
	}
	return c.Status(http.StatusOK).JSON(user)
}

// Delete removes the user in the path together with its wallet.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := UserIDParam(c, "userId")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return notFound(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// UserIDParam parses a numeric user id from a path parameter. A malformed id
// cannot name an existing user, so it is reported as not found.
func UserIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusNotFound, ErrUserNotFound.Error())
	}
	return id, nil
}

func notFound(err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return err
}
