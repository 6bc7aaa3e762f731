package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/engine"
)

// RegisterLedgerRoutes wires the balance-mutating operations.
func RegisterLedgerRoutes(r fiber.Router, h *engine.Handler) {
	r.Post("/wallets/:walletId/deposit", h.Deposit)
	r.Post("/wallets/:walletId/withdraw", h.Withdraw)
	r.Post("/transfers", h.Transfer)
}
