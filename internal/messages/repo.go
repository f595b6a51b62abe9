package messages

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DB }

var _ Store = (*Repo)(nil)

const cols = `id, from_account_id, to_account_id, content, is_read, created_at`

func scan(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.FromAccountID, &m.ToAccountID, &m.Content, &m.IsRead, &m.CreatedAt)
	return m, err
}

func (r *Repo) CreateMessage(ctx context.Context, from, to int64, content string) (Message, error) {
	m, err := scan(r.DB.QueryRow(ctx, `
		INSERT INTO messages(from_account_id, to_account_id, content)
		VALUES ($1, $2, $3)
		RETURNING `+cols, from, to, content))
	if postgres.IsForeignKeyViolation(err) {
		return Message{}, apperr.NotFound("recipient not found")
	}
	return m, err
}

func (r *Repo) GetMessage(ctx context.Context, id int64) (Message, error) {
	m, err := scan(r.DB.QueryRow(ctx, `SELECT `+cols+` FROM messages WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, apperr.NotFound("message not found")
	}
	return m, err
}

func (r *Repo) ListForAccount(ctx context.Context, accountID int64) ([]Message, error) {
	return r.list(ctx, `
		SELECT `+cols+` FROM messages
		WHERE from_account_id=$1 OR to_account_id=$1
		ORDER BY created_at, id`, accountID)
}

func (r *Repo) Conversation(ctx context.Context, a, b int64) ([]Message, error) {
	return r.list(ctx, `
		SELECT `+cols+` FROM messages
		WHERE (from_account_id=$1 AND to_account_id=$2) OR (from_account_id=$2 AND to_account_id=$1)
		ORDER BY created_at, id`, a, b)
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) MarkRead(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `UPDATE messages SET is_read = TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("message not found")
	}
	return nil
}
