package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/fault"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/money"
)

// Handler exposes the engine's operations over HTTP. Amounts cross the
// boundary as decimal strings so no float rounding happens before the engine
// sees them.
type Handler struct {
	engine *Engine
}

// NewHandler builds an engine HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type transferRequest struct {
	FromWalletID string `json:"from_wallet_id"`
	ToWalletID   string `json:"to_wallet_id"`
	Amount       string `json:"amount"`
}

type walletPayload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

type transactionPayload struct {
	ID        string    `json:"id"`
	WalletID  string    `json:"wallet_id"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// Deposit credits a wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.singleWalletOp(c, h.engine.Deposit)
}

// Withdraw debits a wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.singleWalletOp(c, h.engine.Withdraw)
}

// Transfer moves funds between two wallets.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := money.ParseAmount(req.Amount)
	if err != nil {
		return toHTTPError(err)
	}

	res, err := h.engine.Transfer(c.UserContext(), req.FromWalletID, req.ToWalletID, amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"reference":   res.Reference,
		"from_wallet": toWalletPayload(res.From),
		"to_wallet":   toWalletPayload(res.To),
		"debit":       toTransactionPayload(res.Debit),
		"credit":      toTransactionPayload(res.Credit),
	})
}

func (h *Handler) singleWalletOp(c *fiber.Ctx, op func(ctx context.Context, walletID string, amount decimal.Decimal) (OperationResult, error)) error {
	walletID := c.Params("walletId")
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := money.ParseAmount(req.Amount)
	if err != nil {
		return toHTTPError(err)
	}

	res, err := op(c.UserContext(), walletID, amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"wallet":      toWalletPayload(res.Wallet),
		"transaction": toTransactionPayload(res.Transaction),
	})
}

func toWalletPayload(w ledger.Wallet) walletPayload {
	return walletPayload{
		ID:        w.ID,
		UserID:    w.UserID,
		Currency:  string(w.Currency),
		Balance:   w.Balance.String(),
		CreatedAt: w.CreatedAt,
	}
}

func toTransactionPayload(t ledger.Transaction) transactionPayload {
	return transactionPayload{
		ID:        t.ID,
		WalletID:  t.WalletID,
		Type:      string(t.Type),
		Amount:    t.Amount.String(),
		Reference: t.Reference,
		CreatedAt: t.CreatedAt,
	}
}

// toHTTPError maps taxonomy kinds onto transport status codes. The mapping
// lives only here at the HTTP edge; Internal details are never echoed back.
func toHTTPError(err error) error {
	switch fault.KindOf(err) {
	case fault.InvalidArgument:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case fault.NotFound:
		return fiber.NewError(http.StatusNotFound, err.Error())
	case fault.Conflict:
		return fiber.NewError(http.StatusConflict, err.Error())
	case fault.InsufficientFunds, fault.CurrencyMismatch, fault.InvalidState:
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case fault.LockTimeout:
		return fiber.NewError(http.StatusServiceUnavailable, "operation timed out waiting for a wallet lock, retry")
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
