// Package ledger is the durable record of wallets and transactions. Balances
// never go negative, transaction amounts are strictly positive, and writes
// that belong together commit together.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is a supported wallet currency code.
type Currency string

const (
	CurrencyUSD  Currency = "USD"
	CurrencyGold Currency = "GOLD"
)

// Valid reports whether the code belongs to the supported set.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyGold:
		return true
	}
	return false
}

// TransactionType labels a ledger entry.
type TransactionType string

const (
	TypeDeposit        TransactionType = "deposit"
	TypeWithdraw       TransactionType = "withdraw"
	TypeTransferDebit  TransactionType = "transfer_debit"
	TypeTransferCredit TransactionType = "transfer_credit"
)

// Wallet is a per-user, per-currency balance record. Instances returned by
// the store are snapshots; mutating them has no effect on stored state.
type Wallet struct {
	ID        string
	UserID    string
	Currency  Currency
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Transaction is an immutable record of a balance-affecting event. The
// Reference field correlates the two legs of a transfer; single-wallet
// operations carry their own fresh reference.
type Transaction struct {
	ID        string
	WalletID  string
	Type      TransactionType
	Amount    decimal.Decimal
	Reference string
	CreatedAt time.Time
}

// Store is the contract implemented by ledger backends (Postgres in
// production, memory for tests and local development).
type Store interface {
	// CreateWallet provisions a zero-balance wallet. It fails with Conflict
	// if the user already holds a wallet in the currency, NotFound if the
	// user does not exist, and InvalidArgument for unsupported currencies.
	CreateWallet(ctx context.Context, userID string, currency Currency) (Wallet, error)

	// GetWallet fetches a wallet snapshot by identifier.
	GetWallet(ctx context.Context, id string) (Wallet, error)

	// WalletByUser fetches the user's wallet in the given currency.
	WalletByUser(ctx context.Context, userID string, currency Currency) (Wallet, error)

	// ListRecentTransactions returns up to limit entries for the wallet,
	// newest first.
	ListRecentTransactions(ctx context.Context, walletID string, limit int) ([]Transaction, error)

	// Begin opens a unit of work. Writes staged inside it become visible
	// only on Commit; Rollback discards them all.
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork is a set of reads and writes that commit or discard atomically.
// Callers must finish every unit of work with Commit or Rollback; deferring
// Rollback right after Begin is the expected pattern.
type UnitOfWork interface {
	// LockWallets acquires exclusive access to every named wallet for the
	// remainder of the unit of work. Acquisition always proceeds in sorted
	// identifier order regardless of how the caller labels the wallets,
	// which is what prevents two opposite-direction transfers from
	// deadlocking. Fails with NotFound, naming how many ids resolved, if
	// any wallet is missing, and with LockTimeout when a lock cannot be
	// obtained within the configured bound.
	LockWallets(ctx context.Context, ids []string) (map[string]Wallet, error)

	// SetBalance replaces a wallet balance. Valid only while the wallet is
	// locked by this unit of work; negative values fail with InvalidState.
	SetBalance(ctx context.Context, id string, balance decimal.Decimal) error

	// AppendTransaction inserts an immutable ledger entry. The amount must
	// be strictly positive.
	AppendTransaction(ctx context.Context, walletID string, typ TransactionType, amount decimal.Decimal, reference string) (Transaction, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
