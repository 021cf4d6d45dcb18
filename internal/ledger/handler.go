package ledger

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/identity"
	"github.com/congo-pay/walletledger/internal/wallet"
)

// Handler exposes the ledger operations over HTTP.
type Handler struct {
	engine *Engine
	reader *Reader
	users  *identity.Service
}

// NewHandler builds the ledger HTTP handler.
func NewHandler(engine *Engine, reader *Reader, users *identity.Service) *Handler {
	return &Handler{engine: engine, reader: reader, users: users}
}

type amountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	ReceiverID int64            `json:"receiver_id"`
	Amount     *decimal.Decimal `json:"amount"`
}

// Deposit credits the user in the path.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	user, err := h.resolve(c)
	if err != nil {
		return err
	}
	amount, err := parseAmount(c)
	if err != nil {
		return err
	}
	rec, err := h.engine.Deposit(c.UserContext(), user, amount)
	return respond(c, rec, err)
}

// Withdraw debits the user in the path.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	user, err := h.resolve(c)
	if err != nil {
		return err
	}
	amount, err := parseAmount(c)
	if err != nil {
		return err
	}
	rec, err := h.engine.Withdraw(c.UserContext(), user, amount)
	return respond(c, rec, err)
}

// Transfer moves funds from the user in the path to receiver_id.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	sender, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ReceiverID <= 0 {
		return fiber.NewError(http.StatusNotFound, "receiving user not found")
	}
	if _, err := h.users.Get(c.UserContext(), req.ReceiverID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return fiber.NewError(http.StatusNotFound, "receiving user not found")
		}
		return err
	}
	if req.Amount == nil {
		return fiber.NewError(http.StatusBadRequest, "amount is required")
	}
	rec, err := h.engine.Transfer(c.UserContext(), sender, req.ReceiverID, *req.Amount)
	return respond(c, rec, err)
}

// History lists the transactions of the user in the path, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	user, err := h.resolve(c)
	if err != nil {
		return err
	}
	history, err := h.reader.History(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(history)
}

func (h *Handler) resolve(c *fiber.Ctx) (int64, error) {
	id, err := identity.UserIDParam(c, "userId")
	if err != nil {
		return 0, err
	}
	if _, err := h.users.Get(c.UserContext(), id); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return 0, fiber.NewError(http.StatusNotFound, err.Error())
		}
		return 0, err
	}
	return id, nil
}

func parseAmount(c *fiber.Ctx) (decimal.Decimal, error) {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return decimal.Zero, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Amount == nil {
		return decimal.Zero, fiber.NewError(http.StatusBadRequest, "amount is required")
	}
	return *req.Amount, nil
}

func respond(c *fiber.Ctx, rec Transaction, err error) error {
	if err != nil {
		return errorResponse(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":     "Operation successful",
		"transaction": rec,
	})
}

func errorResponse(err error) error {
	switch KindOf(err) {
	case KindInvalidAmount, KindInsufficientFunds, KindSameParty:
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}
	// The user existed when the request was resolved; its wallet vanished since.
	if errors.Is(err, wallet.ErrWalletNotFound) {
		return fiber.NewError(http.StatusNotFound, identity.ErrUserNotFound.Error())
	}
	return err
}
