package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/fault"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestMemoryStore_CreateWallet(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	userID := uuid.NewString()

	w, err := s.CreateWallet(ctx, userID, CurrencyUSD)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero starting balance, got %s", w.Balance)
	}

	if _, err := s.CreateWallet(ctx, userID, CurrencyUSD); !fault.IsKind(err, fault.Conflict) {
		t.Fatalf("expected conflict for duplicate wallet, got %v", err)
	}
	if _, err := s.CreateWallet(ctx, userID, CurrencyGold); err != nil {
		t.Fatalf("second currency should be allowed: %v", err)
	}
	if _, err := s.CreateWallet(ctx, userID, Currency("EUR")); !fault.IsKind(err, fault.InvalidArgument) {
		t.Fatalf("expected invalid argument for EUR, got %v", err)
	}
	if _, err := s.CreateWallet(ctx, "not-a-uuid", CurrencyUSD); !fault.IsKind(err, fault.InvalidArgument) {
		t.Fatalf("expected invalid argument for bad user id, got %v", err)
	}
}

func TestMemoryStore_CommitAppliesStagedWrites(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	w, err := s.CreateWallet(ctx, uuid.NewString(), CurrencyUSD)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := uow.LockWallets(ctx, []string{w.ID}); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := uow.SetBalance(ctx, w.ID, dec(t, "42.5")); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	if _, err := uow.AppendTransaction(ctx, w.ID, TypeDeposit, dec(t, "42.5"), uuid.NewString()); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Nothing visible before commit.
	snapshot, _ := s.GetWallet(ctx, w.ID)
	if !snapshot.Balance.IsZero() {
		t.Fatalf("staged balance leaked before commit: %s", snapshot.Balance)
	}

	if err := uow.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	snapshot, _ = s.GetWallet(ctx, w.ID)
	if !snapshot.Balance.Equal(dec(t, "42.5")) {
		t.Fatalf("expected balance 42.5, got %s", snapshot.Balance)
	}
	entries, err := s.ListRecentTransactions(ctx, w.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != TypeDeposit {
		t.Fatalf("expected one deposit entry, got %+v", entries)
	}
}

func TestMemoryStore_RollbackDiscardsEverything(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, uuid.NewString(), CurrencyUSD)

	uow, _ := s.Begin(ctx)
	if _, err := uow.LockWallets(ctx, []string{w.ID}); err != nil {
		t.Fatalf("lock: %v", err)
	}
	_ = uow.SetBalance(ctx, w.ID, dec(t, "100"))
	_, _ = uow.AppendTransaction(ctx, w.ID, TypeDeposit, dec(t, "100"), uuid.NewString())
	if err := uow.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	snapshot, _ := s.GetWallet(ctx, w.ID)
	if !snapshot.Balance.IsZero() {
		t.Fatalf("rollback leaked balance: %s", snapshot.Balance)
	}
	entries, _ := s.ListRecentTransactions(ctx, w.ID, 10)
	if len(entries) != 0 {
		t.Fatalf("rollback leaked transactions: %+v", entries)
	}
}

func TestMemoryStore_LockMissingWalletReportsCounts(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, uuid.NewString(), CurrencyUSD)

	uow, _ := s.Begin(ctx)
	defer uow.Rollback(ctx)
	_, err := uow.LockWallets(ctx, []string{w.ID, uuid.NewString()})
	if !fault.IsKind(err, fault.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_SetBalanceGuards(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, uuid.NewString(), CurrencyUSD)

	uow, _ := s.Begin(ctx)
	defer uow.Rollback(ctx)

	if err := uow.SetBalance(ctx, w.ID, dec(t, "1")); !fault.IsKind(err, fault.InvalidState) {
		t.Fatalf("expected invalid state without lock, got %v", err)
	}
	if _, err := uow.LockWallets(ctx, []string{w.ID}); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := uow.SetBalance(ctx, w.ID, dec(t, "-0.00000001")); !fault.IsKind(err, fault.InvalidState) {
		t.Fatalf("expected invalid state for negative balance, got %v", err)
	}
}

func TestMemoryStore_LockWaitTimesOut(t *testing.T) {
	s := NewMemoryWithLockWait(50 * time.Millisecond)
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, uuid.NewString(), CurrencyUSD)

	holder, _ := s.Begin(ctx)
	if _, err := holder.LockWallets(ctx, []string{w.ID}); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	defer holder.Rollback(ctx)

	blocked, _ := s.Begin(ctx)
	defer blocked.Rollback(ctx)
	if _, err := blocked.LockWallets(ctx, []string{w.ID}); !fault.IsKind(err, fault.LockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
}

func TestMemoryStore_OppositeOrderLockersDoNotDeadlock(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	a, _ := s.CreateWallet(ctx, uuid.NewString(), CurrencyUSD)
	b, _ := s.CreateWallet(ctx, uuid.NewString(), CurrencyUSD)

	const rounds = 50
	var wg sync.WaitGroup
	run := func(ids []string) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			uow, err := s.Begin(ctx)
			if err != nil {
				t.Errorf("begin: %v", err)
				return
			}
			if _, err := uow.LockWallets(ctx, ids); err != nil {
				t.Errorf("lock %v: %v", ids, err)
				_ = uow.Rollback(ctx)
				return
			}
			if err := uow.Commit(ctx); err != nil {
				t.Errorf("commit: %v", err)
				return
			}
		}
	}

	wg.Add(2)
	go run([]string{a.ID, b.ID})
	go run([]string{b.ID, a.ID})
	wg.Wait()
}

func TestMemoryStore_ListRecentTransactionsNewestFirst(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, uuid.NewString(), CurrencyUSD)

	for _, amount := range []string{"1", "2", "3"} {
		uow, _ := s.Begin(ctx)
		if _, err := uow.LockWallets(ctx, []string{w.ID}); err != nil {
			t.Fatalf("lock: %v", err)
		}
		if _, err := uow.AppendTransaction(ctx, w.ID, TypeDeposit, dec(t, amount), uuid.NewString()); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := uow.Commit(ctx); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	entries, err := s.ListRecentTransactions(ctx, w.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Amount.Equal(dec(t, "3")) || !entries[1].Amount.Equal(dec(t, "2")) {
		t.Fatalf("expected newest first, got %s then %s", entries[0].Amount, entries[1].Amount)
	}
}
