package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaDDL is the authoritative relational layout. Check constraints keep
// balances non-negative and amounts strictly positive even if a writer
// misbehaves.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    id          UUID PRIMARY KEY,
    email       TEXT NOT NULL UNIQUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS wallets (
    id          UUID PRIMARY KEY,
    user_id     UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    currency    TEXT NOT NULL CHECK (currency IN ('USD', 'GOLD')),
    balance     NUMERIC(30, 8) NOT NULL DEFAULT 0 CHECK (balance >= 0),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (user_id, currency)
);

CREATE TABLE IF NOT EXISTS transactions (
    id          UUID PRIMARY KEY,
    wallet_id   UUID NOT NULL REFERENCES wallets (id) ON DELETE CASCADE,
    type        TEXT NOT NULL CHECK (type IN ('deposit', 'withdraw', 'transfer_debit', 'transfer_credit')),
    amount      NUMERIC(30, 8) NOT NULL CHECK (amount > 0),
    reference   TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transactions_wallet_recent
    ON transactions (wallet_id, created_at DESC);
`

// EnsureSchema applies the relational layout. Idempotent; intended for local
// and test environments where no external migration tooling runs.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
