package ledger

import "time"

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Points       int64     `json:"points"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

type NewAccount struct {
	Username     string
	PasswordHash string
	Name         string
	Email        string
}

// Transfer is an append-only ledger entry; never updated or deleted.
type Transfer struct {
	ID            int64     `json:"id"`
	FromAccountID int64     `json:"fromUserId"`
	ToAccountID   int64     `json:"toUserId"`
	Points        int64     `json:"points"`
	Reason        *string   `json:"reason"`
	CreatedAt     time.Time `json:"createdAt"`
}

type TransferInput struct {
	FromAccountID int64
	ToAccountID   int64
	Points        int64
	Reason        *string
}
