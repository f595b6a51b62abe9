package messages_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/memstore"
	"github.com/ariefcatur/go-realtime-points/internal/messages"
	"github.com/stretchr/testify/require"
)

func newService() (*messages.Service, *memstore.Store) {
	store := memstore.New()
	return &messages.Service{Store: store, Accounts: &ledger.Service{Store: store}}, store
}

func TestSend_RequiresContentAndRecipient(t *testing.T) {
	req := require.New(t)
	svc, store := newService()
	ctx := context.Background()
	a := store.Seed("a", 0, false)

	_, err := svc.Send(ctx, a.ID, a.ID, "   ")
	req.ErrorIs(err, apperr.ErrValidation)

	_, err = svc.Send(ctx, a.ID, 999, "hello")
	req.ErrorIs(err, apperr.ErrNotFound)
}

func TestMarkRead_OnlyRecipient(t *testing.T) {
	req := require.New(t)
	svc, store := newService()
	ctx := context.Background()
	a := store.Seed("a", 0, false)
	b := store.Seed("b", 0, false)

	// Given a message from a to b
	m, err := svc.Send(ctx, a.ID, b.ID, "hi")
	req.NoError(err)
	req.False(m.IsRead)

	// When the sender tries to mark it read
	err = svc.MarkRead(ctx, a.ID, m.ID)

	// Then it is rejected and stays unread
	req.ErrorIs(err, apperr.ErrForbidden)
	got, err := store.GetMessage(ctx, m.ID)
	req.NoError(err)
	req.False(got.IsRead)

	req.NoError(svc.MarkRead(ctx, b.ID, m.ID))
	req.NoError(svc.MarkRead(ctx, b.ID, m.ID))
	got, err = store.GetMessage(ctx, m.ID)
	req.NoError(err)
	req.True(got.IsRead)

	req.ErrorIs(svc.MarkRead(ctx, b.ID, 12345), apperr.ErrNotFound)
}

func TestInboxAndConversation(t *testing.T) {
	req := require.New(t)
	svc, store := newService()
	ctx := context.Background()
	a := store.Seed("a", 0, false)
	b := store.Seed("b", 0, false)
	c := store.Seed("c", 0, false)

	_, err := svc.Send(ctx, a.ID, b.ID, "one")
	req.NoError(err)
	_, err = svc.Send(ctx, b.ID, a.ID, "two")
	req.NoError(err)
	_, err = svc.Send(ctx, c.ID, a.ID, "three")
	req.NoError(err)

	inbox, err := svc.Inbox(ctx, a.ID)
	req.NoError(err)
	req.Len(inbox, 3)

	conv, err := svc.Conversation(ctx, a.ID, b.ID)
	req.NoError(err)
	req.Len(conv, 2)
	req.Equal("one", conv[0].Content)
	req.Equal("two", conv[1].Content)
}
