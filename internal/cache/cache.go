// Package cache keeps short-lived wallet snapshots in Redis so hot read
// paths avoid the database. The ledger store stays authoritative: the engine
// invalidates entries after every committed mutation, and a TTL bounds
// staleness if an invalidation is ever lost.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/ledger"
)

const keyPrefix = "wallet:snapshot:"

type walletDoc struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletCache is a read-through cache of wallet snapshots. All operations are
// best effort: a cache failure must never fail the request.
type WalletCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWalletCache builds a wallet snapshot cache with the given TTL.
func NewWalletCache(client *redis.Client, ttl time.Duration) *WalletCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &WalletCache{client: client, ttl: ttl}
}

// Get returns a cached snapshot if one exists.
func (c *WalletCache) Get(ctx context.Context, walletID string) (ledger.Wallet, bool) {
	if c == nil || c.client == nil {
		return ledger.Wallet{}, false
	}
	raw, err := c.client.Get(ctx, keyPrefix+walletID).Result()
	if err != nil {
		return ledger.Wallet{}, false
	}
	var doc walletDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ledger.Wallet{}, false
	}
	balance, err := decimal.NewFromString(doc.Balance)
	if err != nil {
		return ledger.Wallet{}, false
	}
	return ledger.Wallet{
		ID:        doc.ID,
		UserID:    doc.UserID,
		Currency:  ledger.Currency(doc.Currency),
		Balance:   balance,
		CreatedAt: doc.CreatedAt,
	}, true
}

// Put stores a snapshot under the cache TTL.
func (c *WalletCache) Put(ctx context.Context, w ledger.Wallet) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(walletDoc{
		ID:        w.ID,
		UserID:    w.UserID,
		Currency:  string(w.Currency),
		Balance:   w.Balance.String(),
		CreatedAt: w.CreatedAt,
	})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, keyPrefix+w.ID, raw, c.ttl).Err()
}

// Invalidate drops the snapshots for the given wallets.
func (c *WalletCache) Invalidate(ctx context.Context, walletIDs ...string) {
	if c == nil || c.client == nil || len(walletIDs) == 0 {
		return
	}
	keys := make([]string, len(walletIDs))
	for i, id := range walletIDs {
		keys[i] = keyPrefix + id
	}
	_ = c.client.Del(ctx, keys...).Err()
}
