package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets a wallet balance directly when the
// store is the in-memory implementation.
func SeedBalance(s Store, walletID string, balance decimal.Decimal) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if mw, exists := mem.wallets[walletID]; exists {
			mw.wallet.Balance = balance
		}
	}
}
