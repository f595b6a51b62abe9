package ledger

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/events"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
)

// Publisher is the slice of the event bus the ledger needs.
type Publisher interface {
	Publish(ctx context.Context, t events.Type, data any)
}

// Service enforces the transfer policy on top of a Store.
//
// Policy: amount must be positive and source must differ from destination (InvalidTransfer);
// a non-admin source needs amount <= balance (InsufficientBalance, checked by the store under lock);
// an admin source is never debited. Authorization (caller == source) is the caller's job.
type Service struct {
	Store Store
	Bus   Publisher
}

func (s *Service) Transfer(ctx context.Context, in TransferInput) (Transfer, error) {
	if in.Points <= 0 {
		obs.Transfers.WithLabelValues("invalid").Inc()
		return Transfer{}, apperr.InvalidTransfer("points must be a positive integer")
	}
	if in.FromAccountID == in.ToAccountID {
		obs.Transfers.WithLabelValues("invalid").Inc()
		return Transfer{}, apperr.InvalidTransfer("cannot transfer points to yourself")
	}

	t, err := s.Store.Transfer(ctx, in)
	if err != nil {
		if e, ok := apperr.As(err); ok {
			obs.Transfers.WithLabelValues(string(e.Kind)).Inc()
		} else {
			obs.Transfers.WithLabelValues("error").Inc()
		}
		return Transfer{}, err
	}
	obs.Transfers.WithLabelValues("ok").Inc()

	obs.Component("ledger").WithFields(map[string]any{
		"transfer_id": t.ID,
		"from":        t.FromAccountID,
		"to":          t.ToAccountID,
		"points":      t.Points,
	}).Info("points transferred")

	if s.Bus != nil {
		s.Bus.Publish(ctx, events.PointsTransferred, t)
	}
	return t, nil
}

// AddPoints is the admin grant.
func (s *Service) AddPoints(ctx context.Context, accountID, points int64) (Account, error) {
	if points <= 0 {
		return Account{}, apperr.Validation("points must be at least 1", map[string]string{"points": "min"})
	}
	return s.Store.AddPoints(ctx, accountID, points)
}

func (s *Service) SetAdmin(ctx context.Context, accountID int64, isAdmin bool) (Account, error) {
	return s.Store.SetAdmin(ctx, accountID, isAdmin)
}

func (s *Service) History(ctx context.Context, accountID int64) ([]Transfer, error) {
	return s.Store.ListTransfers(ctx, accountID)
}

// AccountExists lets other services check recipients without depending on the Store.
func (s *Service) AccountExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.Store.GetAccount(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) GetTransfer(ctx context.Context, id int64) (Transfer, error) {
	return s.Store.GetTransfer(ctx, id)
}
