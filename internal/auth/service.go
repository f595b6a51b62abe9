// Package auth owns registration, login and session resolution.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Service struct {
	Accounts ledger.Store
	Sessions Sessions
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

var errBadCredentials = apperr.Unauthenticated("Invalid username or password")

// Register creates the account with a zero balance and opens a session for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (ledger.Account, string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return ledger.Account{}, "", fmt.Errorf("hash password: %w", err)
	}
	acct, err := s.Accounts.CreateAccount(ctx, ledger.NewAccount{
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: string(hash),
		Name:         in.Name,
		Email:        in.Email,
	})
	if err != nil {
		return ledger.Account{}, "", err
	}
	token, err := s.Sessions.Create(ctx, acct.ID)
	if err != nil {
		return ledger.Account{}, "", err
	}
	obs.Component("auth").WithField("account_id", acct.ID).Info("account registered")
	return acct, token, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (ledger.Account, string, error) {
	acct, err := s.Accounts.GetAccountByUsername(ctx, in.Username)
	if errors.Is(err, apperr.ErrNotFound) {
		return ledger.Account{}, "", errBadCredentials
	}
	if err != nil {
		return ledger.Account{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(in.Password)) != nil {
		return ledger.Account{}, "", errBadCredentials
	}
	token, err := s.Sessions.Create(ctx, acct.ID)
	if err != nil {
		return ledger.Account{}, "", err
	}
	return acct, token, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, token)
}

// Resolve returns the current account behind token. Balances and the admin flag are read fresh.
func (s *Service) Resolve(ctx context.Context, token string) (ledger.Account, error) {
	id, err := s.Sessions.Lookup(ctx, token)
	if err != nil {
		return ledger.Account{}, err
	}
	acct, err := s.Accounts.GetAccount(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return ledger.Account{}, apperr.Unauthenticated("Not authenticated")
	}
	return acct, err
}
