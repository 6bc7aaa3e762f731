package wallet

import (
	"context"
	"strings"

	"github.com/vaultpay/vaultpay/internal/cache"
	"github.com/vaultpay/vaultpay/internal/fault"
	"github.com/vaultpay/vaultpay/internal/identity"
	"github.com/vaultpay/vaultpay/internal/ledger"
)

const (
	defaultTransactionLimit = 20
	maxTransactionLimit     = 100
)

// Service exposes wallet provisioning and read paths over the ledger store.
type Service struct {
	store     ledger.Store
	users     identity.Repository
	snapshots *cache.WalletCache
}

// NewService builds a wallet service. snapshots may be nil when no cache is
// configured.
func NewService(store ledger.Store, users identity.Repository, snapshots *cache.WalletCache) *Service {
	return &Service{store: store, users: users, snapshots: snapshots}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	UserID   string
	Currency string
}

// Create provisions a zero-balance wallet after re-verifying the user exists.
// The store enforces the one-wallet-per-currency rule.
func (s *Service) Create(ctx context.Context, input CreateInput) (ledger.Wallet, error) {
	currency := ledger.Currency(strings.ToUpper(strings.TrimSpace(input.Currency)))
	if !currency.Valid() {
		return ledger.Wallet{}, fault.Newf(fault.InvalidArgument, "unsupported currency %q", input.Currency)
	}
	if _, err := s.users.FindByID(ctx, input.UserID); err != nil {
		return ledger.Wallet{}, err
	}
	return s.store.CreateWallet(ctx, input.UserID, currency)
}

// Get returns a wallet snapshot, served from the cache when possible.
func (s *Service) Get(ctx context.Context, id string) (ledger.Wallet, error) {
	if w, ok := s.snapshots.Get(ctx, id); ok {
		return w, nil
	}
	w, err := s.store.GetWallet(ctx, id)
	if err != nil {
		return ledger.Wallet{}, err
	}
	s.snapshots.Put(ctx, w)
	return w, nil
}

// Transactions lists the wallet's recent entries, newest first. The limit is
// clamped to [1, 100] with a default of 20.
func (s *Service) Transactions(ctx context.Context, walletID string, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	if _, err := s.Get(ctx, walletID); err != nil {
		return nil, err
	}
	return s.store.ListRecentTransactions(ctx, walletID, limit)
}
