package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/fault"
	"github.com/vaultpay/vaultpay/internal/identity"
	"github.com/vaultpay/vaultpay/internal/ledger"
)

func newTestService() (*Service, *ledger.MemoryStore, identity.Repository) {
	store := ledger.NewMemory()
	users := identity.NewMemoryRepository()
	return NewService(store, users, nil), store, users
}

func registerUser(t *testing.T, users identity.Repository) identity.User {
	t.Helper()
	user := identity.User{ID: uuid.NewString(), Email: uuid.NewString() + "@example.com", CreatedAt: time.Now().UTC()}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestCreateWallet(t *testing.T) {
	svc, _, users := newTestService()
	ctx := context.Background()
	user := registerUser(t, users)

	w, err := svc.Create(ctx, CreateInput{UserID: user.ID, Currency: "usd"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.Currency != ledger.CurrencyUSD {
		t.Fatalf("currency not normalized: %s", w.Currency)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", w.Balance)
	}

	if _, err := svc.Create(ctx, CreateInput{UserID: user.ID, Currency: "USD"}); !fault.IsKind(err, fault.Conflict) {
		t.Fatalf("expected conflict for second USD wallet, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{UserID: user.ID, Currency: "GOLD"}); err != nil {
		t.Fatalf("GOLD wallet should be allowed: %v", err)
	}
}

func TestCreateWalletRejectsUnknownUserAndCurrency(t *testing.T) {
	svc, _, users := newTestService()
	ctx := context.Background()
	user := registerUser(t, users)

	if _, err := svc.Create(ctx, CreateInput{UserID: uuid.NewString(), Currency: "USD"}); !fault.IsKind(err, fault.NotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{UserID: user.ID, Currency: "EUR"}); !fault.IsKind(err, fault.InvalidArgument) {
		t.Fatalf("expected invalid argument for EUR, got %v", err)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	svc, store, users := newTestService()
	ctx := context.Background()
	user := registerUser(t, users)

	w, err := svc.Create(ctx, CreateInput{UserID: user.ID, Currency: "USD"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ledger.SeedBalance(store, w.ID, decimal.RequireFromString("12.5"))

	got, err := svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected balance 12.5, got %s", got.Balance)
	}

	if _, err := svc.Get(ctx, uuid.NewString()); !fault.IsKind(err, fault.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransactionsLimitClamping(t *testing.T) {
	svc, store, users := newTestService()
	ctx := context.Background()
	user := registerUser(t, users)

	w, err := svc.Create(ctx, CreateInput{UserID: user.ID, Currency: "USD"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	one := decimal.New(1, 0)
	for i := 0; i < 30; i++ {
		uow, _ := store.Begin(ctx)
		if _, err := uow.LockWallets(ctx, []string{w.ID}); err != nil {
			t.Fatalf("lock: %v", err)
		}
		if _, err := uow.AppendTransaction(ctx, w.ID, ledger.TypeDeposit, one, uuid.NewString()); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := uow.Commit(ctx); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	entries, err := svc.Transactions(ctx, w.ID, 0)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(entries) != defaultTransactionLimit {
		t.Fatalf("expected default limit %d, got %d", defaultTransactionLimit, len(entries))
	}

	entries, err = svc.Transactions(ctx, w.ID, 1000)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(entries) != 30 {
		t.Fatalf("expected all 30 entries under max limit, got %d", len(entries))
	}
}
