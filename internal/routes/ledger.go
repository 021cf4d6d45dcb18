package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletledger/internal/ledger"
)

// RegisterLedgerRoutes wires the balance-changing operations and the history.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/users/:userId/deposit", h.Deposit)
	r.Post("/users/:userId/withdraw", h.Withdraw)
	r.Post("/users/:userId/transfer", h.Transfer)
	r.Get("/users/:userId/transactions", h.History)
}
