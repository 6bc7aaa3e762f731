package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/ledger"
)

func newTestCache(t *testing.T) (*WalletCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWalletCache(client, time.Minute), mr
}

func sampleWallet() ledger.Wallet {
	return ledger.Wallet{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString(),
		Currency:  ledger.CurrencyUSD,
		Balance:   decimal.RequireFromString("123.45678901").Truncate(8),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	w := sampleWallet()

	c.Put(ctx, w)
	got, ok := c.Get(ctx, w.ID)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.ID != w.ID || got.Currency != w.Currency || !got.Balance.Equal(w.Balance) {
		t.Fatalf("snapshot mismatch: %+v vs %+v", got, w)
	}
}

func TestGetMissesUnknownWallet(t *testing.T) {
	c, _ := newTestCache(t)
	if _, ok := c.Get(context.Background(), uuid.NewString()); ok {
		t.Fatalf("expected miss for unknown wallet")
	}
}

func TestInvalidateDropsSnapshot(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	w := sampleWallet()

	c.Put(ctx, w)
	c.Invalidate(ctx, w.ID)
	if _, ok := c.Get(ctx, w.ID); ok {
		t.Fatalf("expected snapshot to be gone after invalidation")
	}
}

func TestSnapshotExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	w := sampleWallet()

	c.Put(ctx, w)
	mr.FastForward(2 * time.Minute)
	if _, ok := c.Get(ctx, w.ID); ok {
		t.Fatalf("expected snapshot to expire")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *WalletCache
	ctx := context.Background()
	c.Put(ctx, sampleWallet())
	c.Invalidate(ctx, uuid.NewString())
	if _, ok := c.Get(ctx, uuid.NewString()); ok {
		t.Fatalf("nil cache should always miss")
	}
}
