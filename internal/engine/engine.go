// Package engine implements deposit, withdraw and transfer as atomic,
// validated state transitions over the ledger store.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/fault"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/money"
	"github.com/vaultpay/vaultpay/internal/notification"
)

// SnapshotInvalidator drops cached wallet snapshots after a committed
// mutation so readers never serve a stale balance past the cache TTL.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, walletIDs ...string)
}

// Engine validates business rules and commits balance changes together with
// their audit entries under per-wallet exclusive locks.
type Engine struct {
	store     ledger.Store
	snapshots SnapshotInvalidator
	notifier  notification.Notifier
	logger    *slog.Logger
}

// New constructs a transfer engine. snapshots and notifier may be nil.
func New(store ledger.Store, snapshots SnapshotInvalidator, notifier notification.Notifier, logger *slog.Logger) *Engine {
	return &Engine{store: store, snapshots: snapshots, notifier: notifier, logger: logger}
}

// OperationResult is the outcome of a single-wallet mutation: the refreshed
// wallet snapshot and the entry that recorded it.
type OperationResult struct {
	Wallet      ledger.Wallet
	Transaction ledger.Transaction
}

// TransferResult is the outcome of a committed transfer: both refreshed
// snapshots and the two legs sharing one reference.
type TransferResult struct {
	From      ledger.Wallet
	To        ledger.Wallet
	Debit     ledger.Transaction
	Credit    ledger.Transaction
	Reference string
}

// Deposit credits amount to the wallet and records a deposit entry.
func (e *Engine) Deposit(ctx context.Context, walletID string, amount decimal.Decimal) (OperationResult, error) {
	if err := validateWalletID(walletID); err != nil {
		return OperationResult{}, err
	}
	if err := money.ValidateAmount(amount); err != nil {
		return OperationResult{}, err
	}

	uow, err := e.store.Begin(ctx)
	if err != nil {
		return OperationResult{}, err
	}
	defer uow.Rollback(ctx) // nolint:errcheck

	wallets, err := uow.LockWallets(ctx, []string{walletID})
	if err != nil {
		return OperationResult{}, err
	}
	w := wallets[walletID]

	newBalance := w.Balance.Add(amount)
	if err := uow.SetBalance(ctx, walletID, newBalance); err != nil {
		return OperationResult{}, err
	}
	entry, err := uow.AppendTransaction(ctx, walletID, ledger.TypeDeposit, amount, uuid.NewString())
	if err != nil {
		return OperationResult{}, err
	}
	if err := uow.Commit(ctx); err != nil {
		return OperationResult{}, err
	}

	e.invalidate(ctx, walletID)
	e.log(ctx, "deposit committed", "wallet_id", walletID, "amount", amount.String())
	w.Balance = newBalance
	return OperationResult{Wallet: w, Transaction: entry}, nil
}

// Withdraw debits amount from the wallet and records a withdraw entry. Fails
// with InsufficientFunds when the balance cannot cover the amount.
func (e *Engine) Withdraw(ctx context.Context, walletID string, amount decimal.Decimal) (OperationResult, error) {
	if err := validateWalletID(walletID); err != nil {
		return OperationResult{}, err
	}
	if err := money.ValidateAmount(amount); err != nil {
		return OperationResult{}, err
	}

	uow, err := e.store.Begin(ctx)
	if err != nil {
		return OperationResult{}, err
	}
	defer uow.Rollback(ctx) // nolint:errcheck

	wallets, err := uow.LockWallets(ctx, []string{walletID})
	if err != nil {
		return OperationResult{}, err
	}
	w := wallets[walletID]

	if w.Balance.LessThan(amount) {
		return OperationResult{}, fault.Newf(fault.InsufficientFunds,
			"wallet %s holds %s, cannot withdraw %s", walletID, w.Balance, amount)
	}

	newBalance := w.Balance.Sub(amount)
	if err := uow.SetBalance(ctx, walletID, newBalance); err != nil {
		return OperationResult{}, err
	}
	entry, err := uow.AppendTransaction(ctx, walletID, ledger.TypeWithdraw, amount, uuid.NewString())
	if err != nil {
		return OperationResult{}, err
	}
	if err := uow.Commit(ctx); err != nil {
		return OperationResult{}, err
	}

	e.invalidate(ctx, walletID)
	e.log(ctx, "withdraw committed", "wallet_id", walletID, "amount", amount.String())
	w.Balance = newBalance
	return OperationResult{Wallet: w, Transaction: entry}, nil
}

// Transfer moves amount between two same-currency wallets, recording a
// transfer_debit on the source and a transfer_credit on the destination with
// one shared reference. Both balances and both entries commit atomically.
func (e *Engine) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (TransferResult, error) {
	if err := validateWalletID(fromID); err != nil {
		return TransferResult{}, err
	}
	if err := validateWalletID(toID); err != nil {
		return TransferResult{}, err
	}
	if fromID == toID {
		return TransferResult{}, fault.New(fault.InvalidArgument, "cannot transfer to the same wallet")
	}
	if err := money.ValidateAmount(amount); err != nil {
		return TransferResult{}, err
	}

	uow, err := e.store.Begin(ctx)
	if err != nil {
		return TransferResult{}, err
	}
	defer uow.Rollback(ctx) // nolint:errcheck

	// Passing the full pair lets the store pick the deadlock-free order.
	wallets, err := uow.LockWallets(ctx, []string{fromID, toID})
	if err != nil {
		return TransferResult{}, err
	}
	from, to := wallets[fromID], wallets[toID]

	if from.Currency != to.Currency {
		return TransferResult{}, fault.Newf(fault.CurrencyMismatch,
			"cannot transfer %s funds to a %s wallet", from.Currency, to.Currency)
	}
	if from.Balance.LessThan(amount) {
		return TransferResult{}, fault.Newf(fault.InsufficientFunds,
			"wallet %s holds %s, cannot transfer %s", fromID, from.Balance, amount)
	}

	newFrom := from.Balance.Sub(amount)
	newTo := to.Balance.Add(amount)
	if err := uow.SetBalance(ctx, fromID, newFrom); err != nil {
		return TransferResult{}, err
	}
	if err := uow.SetBalance(ctx, toID, newTo); err != nil {
		return TransferResult{}, err
	}

	reference := uuid.NewString()
	debit, err := uow.AppendTransaction(ctx, fromID, ledger.TypeTransferDebit, amount, reference)
	if err != nil {
		return TransferResult{}, err
	}
	credit, err := uow.AppendTransaction(ctx, toID, ledger.TypeTransferCredit, amount, reference)
	if err != nil {
		return TransferResult{}, err
	}
	if err := uow.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	e.invalidate(ctx, fromID, toID)
	e.log(ctx, "transfer committed",
		"from_wallet_id", fromID, "to_wallet_id", toID,
		"amount", amount.String(), "reference", reference)

	if e.notifier != nil {
		_ = e.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferCredit,
			Destination: to.UserID,
			Body:        fmt.Sprintf("wallet %s received %s %s", toID, amount, to.Currency),
		})
	}

	from.Balance = newFrom
	to.Balance = newTo
	return TransferResult{From: from, To: to, Debit: debit, Credit: credit, Reference: reference}, nil
}

func (e *Engine) invalidate(ctx context.Context, ids ...string) {
	if e.snapshots != nil {
		e.snapshots.Invalidate(ctx, ids...)
	}
}

func (e *Engine) log(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.InfoContext(ctx, msg, args...)
	}
}

func validateWalletID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fault.Newf(fault.InvalidArgument, "wallet id %q is not a valid uuid", id)
	}
	return nil
}
