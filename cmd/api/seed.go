package main

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/auth"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
	"github.com/ariefcatur/go-realtime-points/internal/shop"
)

// seed creates the admin account and a starter catalog. It is a no-op once "admin" exists.
func seed(ctx context.Context, a *auth.Service, l *ledger.Service, s *shop.Service, password string) error {
	acct, _, err := a.Register(ctx, auth.RegisterInput{
		Username: "admin",
		Password: password,
		Name:     "Administrator",
	})
	if errors.Is(err, apperr.ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := l.SetAdmin(ctx, acct.ID, true); err != nil {
		return err
	}

	eventDay := time.Now().AddDate(0, 1, 0).UTC().Truncate(24 * time.Hour).Add(9 * time.Hour)
	catalog := []orders.Product{
		{
			Name:          "Youth STEM Conference Ticket",
			Description:   "A day of talks, workshops and networking.",
			Category:      "Event",
			Price:         1500,
			Stock:         150,
			Type:          "ticket",
			EventDate:     &eventDay,
			EventLocation: "Main Hall",
		},
		{
			Name:        "Conference T-Shirt",
			Description: "Official event t-shirt, premium cotton.",
			Category:    "Merchandise",
			Price:       800,
			Stock:       100,
			Type:        "tshirt",
			Sizes:       "S,M,L,XL",
		},
		{
			Name:        "Classic Red T-Shirt",
			Description: "The classic red logo tee.",
			Category:    "Classic",
			Price:       950,
			Unlimited:   true,
			Type:        "tshirt",
			Sizes:       "S,M,L,XL,XXL",
		},
	}
	for _, p := range catalog {
		if _, err := s.CreateProduct(ctx, p); err != nil {
			return err
		}
	}
	obs.Component("seed").WithField("products", len(catalog)).Info("seeded admin and catalog")
	return nil
}
