// Package messages holds direct notes between accounts.
package messages

import (
	"context"
	"time"
)

type Message struct {
	ID            int64     `json:"id"`
	FromAccountID int64     `json:"fromUserId"`
	ToAccountID   int64     `json:"toUserId"`
	Content       string    `json:"content"`
	IsRead        bool      `json:"isRead"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Store interface {
	CreateMessage(ctx context.Context, from, to int64, content string) (Message, error)
	GetMessage(ctx context.Context, id int64) (Message, error)
	ListForAccount(ctx context.Context, accountID int64) ([]Message, error)
	Conversation(ctx context.Context, a, b int64) ([]Message, error)
	MarkRead(ctx context.Context, id int64) error
}
