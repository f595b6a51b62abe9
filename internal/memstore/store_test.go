package memstore_test

import (
	"context"
	"math"
	"testing"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/memstore"
	"github.com/stretchr/testify/require"
)

func TestUsernames_AreCaseSensitive(t *testing.T) {
	req := require.New(t)
	s := memstore.New()
	ctx := context.Background()

	// Given "Alice" is registered
	alice, err := s.CreateAccount(ctx, ledger.NewAccount{Username: "Alice", PasswordHash: "x"})
	req.NoError(err)

	// When "alice" registers, it is a different account, like the UNIQUE column in Postgres
	lower, err := s.CreateAccount(ctx, ledger.NewAccount{Username: "alice", PasswordHash: "y"})
	req.NoError(err)
	req.NotEqual(alice.ID, lower.ID)

	// Then lookups match exactly and an exact duplicate conflicts
	got, err := s.GetAccountByUsername(ctx, "Alice")
	req.NoError(err)
	req.Equal(alice.ID, got.ID)

	_, err = s.GetAccountByUsername(ctx, "ALICE")
	req.ErrorIs(err, apperr.ErrNotFound)

	_, err = s.CreateAccount(ctx, ledger.NewAccount{Username: "Alice", PasswordHash: "z"})
	req.ErrorIs(err, apperr.ErrConflict)
}

func TestAdminMint_RejectsBalanceOverflow(t *testing.T) {
	req := require.New(t)
	s := memstore.New()
	ctx := context.Background()

	admin := s.Seed("admin", 0, true)
	rich := s.Seed("rich", math.MaxInt64-10, false)

	// When an admin transfer would push the recipient past the int64 range
	_, err := s.Transfer(ctx, ledger.TransferInput{FromAccountID: admin.ID, ToAccountID: rich.ID, Points: 11})

	// Then it is rejected and nothing is recorded
	req.ErrorIs(err, apperr.ErrValidation)
	got, err := s.GetAccount(ctx, rich.ID)
	req.NoError(err)
	req.Equal(int64(math.MaxInt64-10), got.Points)
	history, err := s.ListTransfers(ctx, rich.ID)
	req.NoError(err)
	req.Empty(history)

	// The largest credit that still fits is fine
	_, err = s.Transfer(ctx, ledger.TransferInput{FromAccountID: admin.ID, ToAccountID: rich.ID, Points: 10})
	req.NoError(err)

	_, err = s.AddPoints(ctx, rich.ID, 1)
	req.ErrorIs(err, apperr.ErrValidation)
	got, err = s.GetAccount(ctx, rich.ID)
	req.NoError(err)
	req.Equal(int64(math.MaxInt64), got.Points)
}
