package wallet

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/fault"
	"github.com/vaultpay/vaultpay/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`
}

type walletResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

type transactionResponse struct {
	ID        string    `json:"id"`
	WalletID  string    `json:"wallet_id"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// Create provisions a wallet for an existing user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{UserID: req.UserID, Currency: req.Currency})
	if err != nil {
		return asHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toWalletResponse(w))
}

// Get returns the wallet snapshot.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toWalletResponse(w))
}

// Transactions lists recent ledger entries for the wallet, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.service.Transactions(c.UserContext(), c.Params("walletId"), limit)
	if err != nil {
		return asHTTPError(err)
	}
	payload := make([]transactionResponse, 0, len(entries))
	for _, t := range entries {
		payload = append(payload, transactionResponse{
			ID:        t.ID,
			WalletID:  t.WalletID,
			Type:      string(t.Type),
			Amount:    t.Amount.String(),
			Reference: t.Reference,
			CreatedAt: t.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": payload})
}

func toWalletResponse(w ledger.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		UserID:    w.UserID,
		Currency:  string(w.Currency),
		Balance:   w.Balance.String(),
		CreatedAt: w.CreatedAt,
	}
}

func asHTTPError(err error) error {
	switch fault.KindOf(err) {
	case fault.InvalidArgument:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case fault.NotFound:
		return fiber.NewError(http.StatusNotFound, err.Error())
	case fault.Conflict:
		return fiber.NewError(http.StatusConflict, err.Error())
	case fault.LockTimeout:
		return fiber.NewError(http.StatusServiceUnavailable, "operation timed out waiting for a wallet lock, retry")
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
