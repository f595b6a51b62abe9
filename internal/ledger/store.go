// Package ledger owns account balances and the point-transfer log.
package ledger

import (
	"context"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
)

// ErrBalanceOverflow rejects a credit whose result does not fit in a balance.
var ErrBalanceOverflow = apperr.Validation("balance would overflow", map[string]string{"points": "max"})

// Store is the durable account/point state. Transfer must be atomic and must serialize concurrent
// read-modify-write on the same account itself; callers never lock.
type Store interface {
	CreateAccount(ctx context.Context, in NewAccount) (Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	GetAccountByUsername(ctx context.Context, username string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	ListAdmins(ctx context.Context) ([]Account, error)

	Transfer(ctx context.Context, in TransferInput) (Transfer, error)
	GetTransfer(ctx context.Context, id int64) (Transfer, error)
	ListTransfers(ctx context.Context, accountID int64) ([]Transfer, error)

	AddPoints(ctx context.Context, id int64, points int64) (Account, error)
	SetAdmin(ctx context.Context, id int64, isAdmin bool) (Account, error)
}
