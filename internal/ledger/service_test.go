package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/events"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/memstore"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/stretchr/testify/require"
)

type busSpy struct {
	mu     sync.Mutex
	events []events.Type
}

func (b *busSpy) Publish(_ context.Context, t events.Type, _ any) {
	b.mu.Lock()
	b.events = append(b.events, t)
	b.mu.Unlock()
}

func newService(t *testing.T) (*ledger.Service, *memstore.Store, *busSpy) {
	t.Helper()
	obs.Discard()
	store := memstore.New()
	bus := &busSpy{}
	return &ledger.Service{Store: store, Bus: bus}, store, bus
}

func balance(t *testing.T, s *memstore.Store, id int64) int64 {
	t.Helper()
	a, err := s.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Points
}

func reason(s string) *string { return &s }

func TestTransfer_UserToUser_MovesExactAmount(t *testing.T) {
	req := require.New(t)
	svc, store, bus := newService(t)
	ctx := context.Background()

	// Given U (500) and V (100)
	u := store.Seed("u", 500, false)
	v := store.Seed("v", 100, false)

	// When U sends 200 to V with reason "gift"
	tr, err := svc.Transfer(ctx, ledger.TransferInput{FromAccountID: u.ID, ToAccountID: v.ID, Points: 200, Reason: reason("gift")})

	// Then both balances moved by exactly 200 and one record exists
	req.NoError(err)
	req.Equal(int64(300), balance(t, store, u.ID))
	req.Equal(int64(300), balance(t, store, v.ID))
	req.Equal(u.ID, tr.FromAccountID)
	req.Equal(v.ID, tr.ToAccountID)
	req.Equal(int64(200), tr.Points)
	req.Equal("gift", *tr.Reason)

	history, err := svc.History(ctx, u.ID)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(tr.ID, history[0].ID)
	req.Equal([]events.Type{events.PointsTransferred}, bus.events)
}

func TestTransfer_AdminIsNeverDebited(t *testing.T) {
	req := require.New(t)
	svc, store, _ := newService(t)

	d := store.Seed("admin", 0, true)
	u := store.Seed("u", 300, false)

	_, err := svc.Transfer(context.Background(), ledger.TransferInput{FromAccountID: d.ID, ToAccountID: u.ID, Points: 1000})

	req.NoError(err)
	req.Equal(int64(0), balance(t, store, d.ID))
	req.Equal(int64(1300), balance(t, store, u.ID))
}

func TestTransfer_InsufficientBalance_LeavesBalancesUnchanged(t *testing.T) {
	req := require.New(t)
	svc, store, bus := newService(t)
	ctx := context.Background()

	a := store.Seed("a", 50, false)
	b := store.Seed("b", 10, false)

	for _, p := range []int64{51, 100, 1 << 40} {
		_, err := svc.Transfer(ctx, ledger.TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Points: p})
		req.ErrorIs(err, apperr.ErrInsufficientBalance)
	}

	req.Equal(int64(50), balance(t, store, a.ID))
	req.Equal(int64(10), balance(t, store, b.ID))
	history, err := svc.History(ctx, a.ID)
	req.NoError(err)
	req.Empty(history)
	req.Empty(bus.events)
}

func TestTransfer_ExactBalanceSucceeds(t *testing.T) {
	req := require.New(t)
	svc, store, _ := newService(t)

	a := store.Seed("a", 50, false)
	b := store.Seed("b", 0, false)

	_, err := svc.Transfer(context.Background(), ledger.TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Points: 50})

	req.NoError(err)
	req.Equal(int64(0), balance(t, store, a.ID))
}

func TestTransfer_SelfTransferRejected(t *testing.T) {
	svc, store, _ := newService(t)
	user := store.Seed("u", 100, false)
	admin := store.Seed("d", 100, true)

	for _, acct := range []int64{user.ID, admin.ID} {
		for _, p := range []int64{1, 50, 1000} {
			_, err := svc.Transfer(context.Background(), ledger.TransferInput{FromAccountID: acct, ToAccountID: acct, Points: p})
			require.ErrorIs(t, err, apperr.ErrInvalidTransfer)
		}
	}
	require.Equal(t, int64(100), balance(t, store, user.ID))
}

func TestTransfer_NonPositiveAmountRejected(t *testing.T) {
	svc, store, _ := newService(t)
	a := store.Seed("a", 100, false)
	b := store.Seed("b", 0, false)

	for _, p := range []int64{0, -5} {
		_, err := svc.Transfer(context.Background(), ledger.TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Points: p})
		require.ErrorIs(t, err, apperr.ErrInvalidTransfer)
	}
}

func TestTransfer_UnknownAccounts(t *testing.T) {
	req := require.New(t)
	svc, store, _ := newService(t)
	a := store.Seed("a", 100, false)

	_, err := svc.Transfer(context.Background(), ledger.TransferInput{FromAccountID: a.ID, ToAccountID: 999, Points: 1})
	req.ErrorIs(err, apperr.ErrNotFound)

	_, err = svc.Transfer(context.Background(), ledger.TransferInput{FromAccountID: 999, ToAccountID: a.ID, Points: 1})
	req.ErrorIs(err, apperr.ErrNotFound)
	req.Equal(int64(100), balance(t, store, a.ID))
}

func TestTransfer_ConcurrentOverdraftOnlyOneWins(t *testing.T) {
	req := require.New(t)
	svc, store, _ := newService(t)
	ctx := context.Background()

	a := store.Seed("a", 100, false)
	b := store.Seed("b", 0, false)
	c := store.Seed("c", 0, false)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, to := range []int64{b.ID, c.ID} {
		wg.Add(1)
		go func(i int, to int64) {
			defer wg.Done()
			_, errs[i] = svc.Transfer(ctx, ledger.TransferInput{FromAccountID: a.ID, ToAccountID: to, Points: 60})
		}(i, to)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.HTTPStatus(err) == 400:
			req.ErrorIs(err, apperr.ErrInsufficientBalance)
			insufficient++
		}
	}
	req.Equal(1, ok)
	req.Equal(1, insufficient)
	req.Equal(int64(40), balance(t, store, a.ID))
	req.Equal(int64(60), balance(t, store, b.ID)+balance(t, store, c.ID))
}

func TestTransfer_ManyConcurrentTransfersConserveTotal(t *testing.T) {
	req := require.New(t)
	svc, store, _ := newService(t)
	ctx := context.Background()

	a := store.Seed("a", 1000, false)
	b := store.Seed("b", 1000, false)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a.ID, b.ID
			if i%2 == 1 {
				from, to = to, from
			}
			_, _ = svc.Transfer(ctx, ledger.TransferInput{FromAccountID: from, ToAccountID: to, Points: 7})
		}(i)
	}
	wg.Wait()

	req.Equal(int64(2000), balance(t, store, a.ID)+balance(t, store, b.ID))
	req.GreaterOrEqual(balance(t, store, a.ID), int64(0))
	req.GreaterOrEqual(balance(t, store, b.ID), int64(0))
}

func TestAddPoints(t *testing.T) {
	req := require.New(t)
	svc, store, _ := newService(t)
	u := store.Seed("u", 10, false)

	acct, err := svc.AddPoints(context.Background(), u.ID, 90)
	req.NoError(err)
	req.Equal(int64(100), acct.Points)

	_, err = svc.AddPoints(context.Background(), u.ID, 0)
	req.ErrorIs(err, apperr.ErrValidation)

	_, err = svc.AddPoints(context.Background(), 404, 5)
	req.ErrorIs(err, apperr.ErrNotFound)
}

func TestSetAdminAndAccountExists(t *testing.T) {
	req := require.New(t)
	svc, store, _ := newService(t)
	u := store.Seed("u", 10, false)

	acct, err := svc.SetAdmin(context.Background(), u.ID, true)
	req.NoError(err)
	req.True(acct.IsAdmin)

	ok, err := svc.AccountExists(context.Background(), u.ID)
	req.NoError(err)
	req.True(ok)

	ok, err = svc.AccountExists(context.Background(), 12345)
	req.NoError(err)
	req.False(ok)
}
