package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/fault"
)

const defaultLockWait = 3 * time.Second

// memoryWallet pairs a wallet row with its exclusive lock. The capacity-one
// channel is the lock: holding the token means holding the row.
type memoryWallet struct {
	lock   chan struct{}
	wallet Wallet
}

// MemoryStore is a concurrency-safe in-memory ledger store. It mirrors the
// Postgres store's semantics, including sorted lock acquisition, bounded lock
// waits and all-or-nothing commits, so the engine behaves identically in
// tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	wallets  map[string]*memoryWallet
	byOwner  map[string]string
	entries  map[string][]Transaction
	lockWait time.Duration
}

// NewMemory creates a memory store with the default lock wait bound.
func NewMemory() *MemoryStore {
	return NewMemoryWithLockWait(defaultLockWait)
}

// NewMemoryWithLockWait creates a memory store with an explicit lock wait
// bound. Tests use very short waits to exercise the timeout path.
func NewMemoryWithLockWait(wait time.Duration) *MemoryStore {
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &MemoryStore{
		wallets:  make(map[string]*memoryWallet),
		byOwner:  make(map[string]string),
		entries:  make(map[string][]Transaction),
		lockWait: wait,
	}
}

func ownerKey(userID string, currency Currency) string {
	return userID + "/" + string(currency)
}

// CreateWallet provisions a zero-balance wallet, enforcing one wallet per
// (user, currency) pair.
func (s *MemoryStore) CreateWallet(_ context.Context, userID string, currency Currency) (Wallet, error) {
	if !currency.Valid() {
		return Wallet{}, fault.Newf(fault.InvalidArgument, "unsupported currency %q", currency)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return Wallet{}, fault.Newf(fault.InvalidArgument, "user id %q is not a valid uuid", userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerKey(userID, currency)
	if _, exists := s.byOwner[key]; exists {
		return Wallet{}, fault.Newf(fault.Conflict, "user %s already has a %s wallet", userID, currency)
	}

	w := Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	s.wallets[w.ID] = &memoryWallet{lock: make(chan struct{}, 1), wallet: w}
	s.byOwner[key] = w.ID
	return w, nil
}

// GetWallet fetches a wallet snapshot.
func (s *MemoryStore) GetWallet(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mw, ok := s.wallets[id]
	if !ok {
		return Wallet{}, fault.Newf(fault.NotFound, "wallet %s not found", id)
	}
	return mw.wallet, nil
}

// WalletByUser fetches the user's wallet in the given currency.
func (s *MemoryStore) WalletByUser(_ context.Context, userID string, currency Currency) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOwner[ownerKey(userID, currency)]
	if !ok {
		return Wallet{}, fault.Newf(fault.NotFound, "no %s wallet for user %s", currency, userID)
	}
	return s.wallets[id].wallet, nil
}

// ListRecentTransactions returns the wallet's entries, newest first.
func (s *MemoryStore) ListRecentTransactions(_ context.Context, walletID string, limit int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.wallets[walletID]; !ok {
		return nil, fault.Newf(fault.NotFound, "wallet %s not found", walletID)
	}
	all := s.entries[walletID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]Transaction, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Begin opens a unit of work. Writes are staged and only applied on Commit.
func (s *MemoryStore) Begin(_ context.Context) (UnitOfWork, error) {
	return &memoryUnitOfWork{
		store:    s,
		balances: make(map[string]decimal.Decimal),
	}, nil
}

type memoryUnitOfWork struct {
	store    *MemoryStore
	held     []string
	balances map[string]decimal.Decimal
	staged   []Transaction
	done     bool
}

// LockWallets takes each wallet's lock token in sorted id order, releasing
// everything already held if a wallet is missing or a wait times out.
func (u *memoryUnitOfWork) LockWallets(ctx context.Context, ids []string) (map[string]Wallet, error) {
	wanted := dedupeSorted(ids)
	if len(wanted) == 0 {
		return nil, fault.New(fault.InvalidArgument, "no wallet ids to lock")
	}

	u.store.mu.RLock()
	rows := make([]*memoryWallet, 0, len(wanted))
	for _, id := range wanted {
		if mw, ok := u.store.wallets[id]; ok {
			rows = append(rows, mw)
		}
	}
	u.store.mu.RUnlock()
	if len(rows) != len(wanted) {
		return nil, fault.Newf(fault.NotFound, "wallets not found: resolved %d of %d", len(rows), len(wanted))
	}

	found := make(map[string]Wallet, len(wanted))
	for i, id := range wanted {
		mw := rows[i]
		select {
		case mw.lock <- struct{}{}:
		case <-time.After(u.store.lockWait):
			u.releaseAll()
			return nil, fault.Newf(fault.LockTimeout, "wallet %s lock wait timed out", id)
		case <-ctx.Done():
			u.releaseAll()
			return nil, fault.Wrap(fault.Internal, "lock wait canceled", ctx.Err())
		}
		u.held = append(u.held, id)

		u.store.mu.RLock()
		found[id] = mw.wallet
		u.store.mu.RUnlock()
	}
	return found, nil
}

// SetBalance stages a balance replacement for a wallet this unit of work has
// locked.
func (u *memoryUnitOfWork) SetBalance(_ context.Context, id string, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fault.Newf(fault.InvalidState, "balance for wallet %s would be negative", id)
	}
	if !u.holds(id) {
		return fault.Newf(fault.InvalidState, "wallet %s is not locked by this unit of work", id)
	}
	u.balances[id] = balance
	return nil
}

// AppendTransaction stages an immutable ledger entry.
func (u *memoryUnitOfWork) AppendTransaction(_ context.Context, walletID string, typ TransactionType, amount decimal.Decimal, reference string) (Transaction, error) {
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
	u.staged = append(u.staged, t)
	return t, nil
}

// Commit applies every staged write in one critical section and releases the
// held locks. A reader can never observe a partially applied unit of work.
func (u *memoryUnitOfWork) Commit(_ context.Context) error {
	if u.done {
		return fault.New(fault.Internal, "unit of work already finished")
	}
	u.store.mu.Lock()
	for id, balance := range u.balances {
		if mw, ok := u.store.wallets[id]; ok {
			mw.wallet.Balance = balance
		}
	}
	for _, t := range u.staged {
		u.store.entries[t.WalletID] = append(u.store.entries[t.WalletID], t)
	}
	u.store.mu.Unlock()

	u.releaseAll()
	u.done = true
	return nil
}

// Rollback discards staged writes and releases locks. Safe to call after
// Commit, matching the defer-rollback pattern.
func (u *memoryUnitOfWork) Rollback(_ context.Context) error {
	if u.done {
		return nil
	}
	u.balances = make(map[string]decimal.Decimal)
	u.staged = nil
	u.releaseAll()
	u.done = true
	return nil
}

func (u *memoryUnitOfWork) holds(id string) bool {
	for _, held := range u.held {
		if held == id {
			return true
		}
	}
	return false
}

func (u *memoryUnitOfWork) releaseAll() {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	for _, id := range u.held {
		if mw, ok := u.store.wallets[id]; ok {
			<-mw.lock
		}
	}
	u.held = nil
}
