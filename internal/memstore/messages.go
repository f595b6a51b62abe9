package memstore

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/messages"
)

func (s *Store) CreateMessage(_ context.Context, from, to int64, content string) (messages.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[to]; !ok {
		return messages.Message{}, apperr.NotFound("recipient not found")
	}
	m := messages.Message{ID: s.nextID(), FromAccountID: from, ToAccountID: to, Content: content, CreatedAt: s.now()}
	s.messages[m.ID] = m
	return m, nil
}

func (s *Store) GetMessage(_ context.Context, id int64) (messages.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return messages.Message{}, apperr.NotFound("message not found")
	}
	return m, nil
}

func (s *Store) ListForAccount(_ context.Context, accountID int64) ([]messages.Message, error) {
	return s.filterMessages(func(m messages.Message) bool {
		return m.FromAccountID == accountID || m.ToAccountID == accountID
	}), nil
}

func (s *Store) Conversation(_ context.Context, a, b int64) ([]messages.Message, error) {
	return s.filterMessages(func(m messages.Message) bool {
		return (m.FromAccountID == a && m.ToAccountID == b) || (m.FromAccountID == b && m.ToAccountID == a)
	}), nil
}

func (s *Store) filterMessages(keep func(messages.Message) bool) []messages.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []messages.Message
	for _, m := range s.messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) MarkRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return apperr.NotFound("message not found")
	}
	m.IsRead = true
	s.messages[id] = m
	return nil
}
