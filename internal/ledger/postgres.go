package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/fault"
)

// Postgres error codes the store translates into taxonomy kinds.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgLockNotAvailable    = "55P03"
)

// PostgresStore persists the ledger in PostgreSQL. Row-level exclusivity
// comes from SELECT ... FOR UPDATE inside a transaction, bounded by a
// per-transaction lock_timeout.
type PostgresStore struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresStore builds a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresStore {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &PostgresStore{db: db, lockTimeout: lockTimeout}
}

// CreateWallet inserts a zero-balance wallet row. The user foreign key and
// the (user_id, currency) unique constraint carry the NotFound/Conflict
// semantics.
func (s *PostgresStore) CreateWallet(ctx context.Context, userID string, currency Currency) (Wallet, error) {
	if !currency.Valid() {
		return Wallet{}, fault.Newf(fault.InvalidArgument, "unsupported currency %q", currency)
	}
	owner, err := uuid.Parse(userID)
	if err != nil {
		return Wallet{}, fault.Newf(fault.InvalidArgument, "user id %q is not a valid uuid", userID)
	}

	w := Wallet{
		ID:        uuid.NewString(),
		UserID:    owner.String(),
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, user_id, currency, balance, created_at)
        VALUES ($1, $2, $3, $4, $5)`, w.ID, owner, string(w.Currency), w.Balance, w.CreatedAt)
	if err != nil {
		return Wallet{}, classifyPG("create wallet", err)
	}
	return w, nil
}

// GetWallet fetches a wallet snapshot by identifier.
func (s *PostgresStore) GetWallet(ctx context.Context, id string) (Wallet, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Wallet{}, fault.Newf(fault.InvalidArgument, "wallet id %q is not a valid uuid", id)
	}
	row := s.db.QueryRow(ctx, `SELECT id, user_id, currency, balance, created_at
        FROM wallets WHERE id = $1`, id)
	return scanWallet(row, id)
}

// WalletByUser fetches the user's wallet in the given currency.
func (s *PostgresStore) WalletByUser(ctx context.Context, userID string, currency Currency) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT id, user_id, currency, balance, created_at
        FROM wallets WHERE user_id = $1 AND currency = $2`, userID, string(currency))
	w, err := scanWallet(row, userID)
	if fault.IsKind(err, fault.NotFound) {
		return Wallet{}, fault.Newf(fault.NotFound, "no %s wallet for user %s", currency, userID)
	}
	return w, err
}

// ListRecentTransactions returns the wallet's entries, newest first.
func (s *PostgresStore) ListRecentTransactions(ctx context.Context, walletID string, limit int) ([]Transaction, error) {
	if _, err := uuid.Parse(walletID); err != nil {
		return nil, fault.Newf(fault.InvalidArgument, "wallet id %q is not a valid uuid", walletID)
	}
	rows, err := s.db.Query(ctx, `SELECT id, wallet_id, type, amount, reference, created_at
        FROM transactions WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, walletID, limit)
	if err != nil {
		return nil, classifyPG("list transactions", err)
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		var t Transaction
		var typ string
		if err := rows.Scan(&t.ID, &t.WalletID, &typ, &t.Amount, &t.Reference, &t.CreatedAt); err != nil {
			return nil, classifyPG("scan transaction", err)
		}
		t.Type = TransactionType(typ)
		t.CreatedAt = t.CreatedAt.UTC()
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPG("list transactions", err)
	}
	return entries, nil
}

// Begin opens a database transaction with the store's lock_timeout applied,
// so a blocked FOR UPDATE surfaces as LockTimeout instead of hanging.
func (s *PostgresStore) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fault.Wrap(fault.Internal, "begin transaction", err)
	}
	timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, timeout); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fault.Wrap(fault.Internal, "set lock timeout", err)
	}
	return &pgUnitOfWork{tx: tx}, nil
}

type pgUnitOfWork struct {
	tx     pgx.Tx
	locked map[string]struct{}
}

// LockWallets resolves and locks each wallet row with FOR UPDATE, walking the
// deduplicated ids in ascending order. Sorting fixes the global acquisition
// order for every multi-wallet unit of work.
func (u *pgUnitOfWork) LockWallets(ctx context.Context, ids []string) (map[string]Wallet, error) {
	wanted := dedupeSorted(ids)
	if len(wanted) == 0 {
		return nil, fault.New(fault.InvalidArgument, "no wallet ids to lock")
	}

	found := make(map[string]Wallet, len(wanted))
	for _, id := range wanted {
		row := u.tx.QueryRow(ctx, `SELECT id, user_id, currency, balance, created_at
            FROM wallets WHERE id = $1 FOR UPDATE`, id)
		w, err := scanWallet(row, id)
		if err != nil {
			if fault.IsKind(err, fault.NotFound) {
				continue
			}
			return nil, err
		}
		found[id] = w
	}
	if len(found) != len(wanted) {
		return nil, fault.Newf(fault.NotFound, "wallets not found: resolved %d of %d", len(found), len(wanted))
	}

	if u.locked == nil {
		u.locked = make(map[string]struct{}, len(wanted))
	}
	for _, id := range wanted {
		u.locked[id] = struct{}{}
	}
	return found, nil
}

// SetBalance replaces the locked wallet's balance. The wallets table check
// constraint backs up the negative-balance guard.
func (u *pgUnitOfWork) SetBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fault.Newf(fault.InvalidState, "balance for wallet %s would be negative", id)
	}
	if _, held := u.locked[id]; !held {
		return fault.Newf(fault.InvalidState, "wallet %s is not locked by this unit of work", id)
	}
	cmd, err := u.tx.Exec(ctx, `UPDATE wallets SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return classifyPG("set balance", err)
	}
	if cmd.RowsAffected() == 0 {
		return fault.Newf(fault.NotFound, "wallet %s not found", id)
	}
	return nil
}

// AppendTransaction inserts one immutable ledger entry.
func (u *pgUnitOfWork) AppendTransaction(ctx context.Context, walletID string, typ TransactionType, amount decimal.Decimal, reference string) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, fault.New(fault.InvalidArgument, "transaction amount must be positive")
	}
	t := Transaction{
		ID:        uuid.NewString(),
		WalletID:  walletID,
		Type:      typ,
		Amount:    amount,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	}
	_, err := u.tx.Exec(ctx, `INSERT INTO transactions (id, wallet_id, type, amount, reference, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, t.ID, t.WalletID, string(t.Type), t.Amount, t.Reference, t.CreatedAt)
	if err != nil {
		return Transaction{}, classifyPG("append transaction", err)
	}
	return t, nil
}

func (u *pgUnitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return classifyPG("commit", err)
	}
	return nil
}

func (u *pgUnitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fault.Wrap(fault.Internal, "rollback", err)
	}
	return nil
}

func scanWallet(row pgx.Row, id string) (Wallet, error) {
	var w Wallet
	var currency string
	if err := row.Scan(&w.ID, &w.UserID, &currency, &w.Balance, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, fault.Newf(fault.NotFound, "wallet %s not found", id)
		}
		return Wallet{}, classifyPG("scan wallet", err)
	}
	w.Currency = Currency(currency)
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

// classifyPG maps driver errors onto the taxonomy so callers never branch on
// SQLSTATE codes.
func classifyPG(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fault.Wrap(fault.Conflict, op+": duplicate record", err)
		case pgForeignKeyViolation:
			return fault.Wrap(fault.NotFound, op+": referenced record does not exist", err)
		case pgCheckViolation:
			return fault.Wrap(fault.InvalidState, op+": constraint violated", err)
		case pgLockNotAvailable:
			return fault.Wrap(fault.LockTimeout, op+": wallet lock wait timed out", err)
		}
	}
	return fault.Wrap(fault.Internal, op, err)
}

func dedupeSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
