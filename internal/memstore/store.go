// Package memstore is an in-memory implementation of the ledger, orders and messages stores.
// One mutex guards everything, so every compound operation is atomic and concurrent transfers
// serialize exactly like row locks would.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/messages"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
)

var (
	_ ledger.Store   = (*Store)(nil)
	_ orders.Store   = (*Store)(nil)
	_ messages.Store = (*Store)(nil)
)

type Store struct {
	mu sync.Mutex
	// now is swappable for deterministic timestamps
	now func() time.Time

	seq        int64
	accounts   map[int64]ledger.Account
	transfers  []ledger.Transfer
	products   map[int64]orders.Product
	orders     map[int64]orders.Order
	orderItems map[int64][]orders.OrderItem
	messages   map[int64]messages.Message
}

func New() *Store {
	return &Store{
		now:        func() time.Time { return time.Now().UTC() },
		accounts:   map[int64]ledger.Account{},
		products:   map[int64]orders.Product{},
		orders:     map[int64]orders.Order{},
		orderItems: map[int64][]orders.OrderItem{},
		messages:   map[int64]messages.Message{},
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// ---- accounts & ledger ----

func (s *Store) CreateAccount(_ context.Context, in ledger.NewAccount) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Username == in.Username {
			return ledger.Account{}, apperr.Conflict("username already exists")
		}
	}
	a := ledger.Account{
		ID:           s.nextID(),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Name:         in.Name,
		Email:        in.Email,
		CreatedAt:    s.now(),
	}
	s.accounts[a.ID] = a
	return a, nil
}

// Seed inserts an account with a preset balance and role; used by tests and the demo mode.
func (s *Store) Seed(username string, points int64, isAdmin bool) ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := ledger.Account{ID: s.nextID(), Username: username, Points: points, IsAdmin: isAdmin, CreatedAt: s.now()}
	s.accounts[a.ID] = a
	return a
}

func (s *Store) GetAccount(_ context.Context, id int64) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, apperr.NotFound("user not found")
	}
	return a, nil
}

func (s *Store) GetAccountByUsername(_ context.Context, username string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return ledger.Account{}, apperr.NotFound("user not found")
}

func (s *Store) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	return s.filterAccounts(func(ledger.Account) bool { return true }), nil
}

func (s *Store) ListAdmins(_ context.Context) ([]ledger.Account, error) {
	return s.filterAccounts(func(a ledger.Account) bool { return a.IsAdmin }), nil
}

func (s *Store) filterAccounts(keep func(ledger.Account) bool) []ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ledger.Account
	for _, a := range s.accounts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Transfer(_ context.Context, in ledger.TransferInput) (ledger.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.FromAccountID == in.ToAccountID {
		return ledger.Transfer{}, apperr.InvalidTransfer("cannot transfer points to yourself")
	}
	from, ok := s.accounts[in.FromAccountID]
	if !ok {
		return ledger.Transfer{}, apperr.NotFound("sender not found")
	}
	to, ok := s.accounts[in.ToAccountID]
	if !ok {
		return ledger.Transfer{}, apperr.NotFound("recipient not found")
	}
	if !from.IsAdmin && from.Points < in.Points {
		return ledger.Transfer{}, apperr.InsufficientBalance("Insufficient points")
	}
	if in.Points > 0 && to.Points > math.MaxInt64-in.Points {
		return ledger.Transfer{}, ledger.ErrBalanceOverflow
	}

	t := ledger.Transfer{
		ID:            s.nextID(),
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Points:        in.Points,
		Reason:        in.Reason,
		CreatedAt:     s.now(),
	}
	s.transfers = append(s.transfers, t)
	if !from.IsAdmin {
		from.Points -= in.Points
		s.accounts[from.ID] = from
	}
	to.Points += in.Points
	s.accounts[to.ID] = to
	return t, nil
}

func (s *Store) GetTransfer(_ context.Context, id int64) (ledger.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transfers {
		if t.ID == id {
			return t, nil
		}
	}
	return ledger.Transfer{}, apperr.NotFound("transfer not found")
}

func (s *Store) ListTransfers(_ context.Context, accountID int64) ([]ledger.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ledger.Transfer
	for i := len(s.transfers) - 1; i >= 0; i-- {
		t := s.transfers[i]
		if t.FromAccountID == accountID || t.ToAccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) AddPoints(_ context.Context, id int64, points int64) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, apperr.NotFound("user not found")
	}
	if points > 0 && a.Points > math.MaxInt64-points {
		return ledger.Account{}, ledger.ErrBalanceOverflow
	}
	a.Points += points
	s.accounts[id] = a
	return a, nil
}

func (s *Store) SetAdmin(_ context.Context, id int64, isAdmin bool) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, apperr.NotFound("user not found")
	}
	a.IsAdmin = isAdmin
	s.accounts[id] = a
	return a, nil
}
