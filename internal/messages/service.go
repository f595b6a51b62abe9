package messages

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
)

// Accounts resolves recipients.
type Accounts interface {
	AccountExists(ctx context.Context, id int64) (bool, error)
}

// Service applies the ownership rules: only the sender writes, only the recipient marks read.
type Service struct {
	Store    Store
	Accounts Accounts
}

func (s *Service) Send(ctx context.Context, from, to int64, content string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, apperr.Validation("message content is required", map[string]string{"content": "required"})
	}
	ok, err := s.Accounts.AccountExists(ctx, to)
	if err != nil {
		return Message{}, err
	}
	if !ok {
		return Message{}, apperr.NotFound("recipient not found")
	}
	return s.Store.CreateMessage(ctx, from, to, content)
}

func (s *Service) MarkRead(ctx context.Context, caller, id int64) error {
	m, err := s.Store.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if m.ToAccountID != caller {
		return apperr.Forbidden("Cannot mark this message as read")
	}
	if m.IsRead {
		return nil
	}
	return s.Store.MarkRead(ctx, id)
}

func (s *Service) Inbox(ctx context.Context, accountID int64) ([]Message, error) {
	return s.Store.ListForAccount(ctx, accountID)
}

func (s *Service) Conversation(ctx context.Context, accountID, other int64) ([]Message, error) {
	return s.Store.Conversation(ctx, accountID, other)
}
