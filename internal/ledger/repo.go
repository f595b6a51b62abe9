package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/postgres"
	"github.com/jackc/pgx/v5"
)

// Repo is the Postgres Store.
type Repo struct{ DB postgres.DB }

var _ Store = (*Repo)(nil)

const accountCols = `id, username, password_hash, name, email, points, is_admin, created_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Name, &a.Email, &a.Points, &a.IsAdmin, &a.CreatedAt)
	return a, err
}

func (r *Repo) CreateAccount(ctx context.Context, in NewAccount) (Account, error) {
	a, err := scanAccount(r.DB.QueryRow(ctx, `
		INSERT INTO accounts(username, password_hash, name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountCols, in.Username, in.PasswordHash, in.Name, in.Email))
	if postgres.IsUniqueViolation(err) {
		return Account{}, apperr.Conflict("username already exists")
	}
	return a, err
}

func (r *Repo) GetAccount(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.DB.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, apperr.NotFound("user not found")
	}
	return a, err
}

func (r *Repo) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	a, err := scanAccount(r.DB.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE username=$1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, apperr.NotFound("user not found")
	}
	return a, err
}

func (r *Repo) ListAccounts(ctx context.Context) ([]Account, error) {
	return r.listAccounts(ctx, `SELECT `+accountCols+` FROM accounts ORDER BY id`)
}

func (r *Repo) ListAdmins(ctx context.Context) ([]Account, error) {
	return r.listAccounts(ctx, `SELECT `+accountCols+` FROM accounts WHERE is_admin ORDER BY id`)
}

func (r *Repo) listAccounts(ctx context.Context, q string) ([]Account, error) {
	rows, err := r.DB.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transfer locks both account rows (ascending id, so opposite transfers cannot deadlock),
// checks the balance under the lock, then writes the record and both balances in one commit.
func (r *Repo) Transfer(ctx context.Context, in TransferInput) (Transfer, error) {
	if in.FromAccountID == in.ToAccountID {
		return Transfer{}, apperr.InvalidTransfer("cannot transfer points to yourself")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transfer{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, points, is_admin FROM accounts
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		[]int64{in.FromAccountID, in.ToAccountID})
	if err != nil {
		return Transfer{}, err
	}
	type locked struct {
		points  int64
		isAdmin bool
	}
	byID := map[int64]locked{}
	for rows.Next() {
		var id int64
		var l locked
		if err := rows.Scan(&id, &l.points, &l.isAdmin); err != nil {
			rows.Close()
			return Transfer{}, err
		}
		byID[id] = l
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Transfer{}, err
	}

	from, ok := byID[in.FromAccountID]
	if !ok {
		return Transfer{}, apperr.NotFound("sender not found")
	}
	to, ok := byID[in.ToAccountID]
	if !ok {
		return Transfer{}, apperr.NotFound("recipient not found")
	}
	if !from.isAdmin && from.points < in.Points {
		return Transfer{}, apperr.InsufficientBalance("Insufficient points")
	}
	if in.Points > 0 && to.points > math.MaxInt64-in.Points {
		return Transfer{}, ErrBalanceOverflow
	}

	t := Transfer{FromAccountID: in.FromAccountID, ToAccountID: in.ToAccountID, Points: in.Points, Reason: in.Reason}
	if err := tx.QueryRow(ctx, `
		INSERT INTO point_transfers(from_account_id, to_account_id, points, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		in.FromAccountID, in.ToAccountID, in.Points, in.Reason,
	).Scan(&t.ID, &t.CreatedAt); err != nil {
		return Transfer{}, fmt.Errorf("insert transfer: %w", err)
	}

	// admins mint: their balance is never debited
	if !from.isAdmin {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET points = points - $2 WHERE id=$1`, in.FromAccountID, in.Points); err != nil {
			return Transfer{}, fmt.Errorf("debit sender: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET points = points + $2 WHERE id=$1`, in.ToAccountID, in.Points); err != nil {
		return Transfer{}, fmt.Errorf("credit recipient: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Transfer{}, err
	}
	return t, nil
}

const transferCols = `id, from_account_id, to_account_id, points, reason, created_at`

func scanTransfer(row pgx.Row) (Transfer, error) {
	var t Transfer
	err := row.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &t.Points, &t.Reason, &t.CreatedAt)
	return t, err
}

func (r *Repo) GetTransfer(ctx context.Context, id int64) (Transfer, error) {
	t, err := scanTransfer(r.DB.QueryRow(ctx, `SELECT `+transferCols+` FROM point_transfers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transfer{}, apperr.NotFound("transfer not found")
	}
	return t, err
}

func (r *Repo) ListTransfers(ctx context.Context, accountID int64) ([]Transfer, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+transferCols+` FROM point_transfers
		WHERE from_account_id=$1 OR to_account_id=$1
		ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) AddPoints(ctx context.Context, id int64, points int64) (Account, error) {
	a, err := scanAccount(r.DB.QueryRow(ctx, `
		UPDATE accounts SET points = points + $2 WHERE id=$1
		RETURNING `+accountCols, id, points))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, apperr.NotFound("user not found")
	}
	if postgres.IsOutOfRange(err) {
		return Account{}, ErrBalanceOverflow
	}
	return a, err
}

func (r *Repo) SetAdmin(ctx context.Context, id int64, isAdmin bool) (Account, error) {
	a, err := scanAccount(r.DB.QueryRow(ctx, `
		UPDATE accounts SET is_admin = $2 WHERE id=$1
		RETURNING `+accountCols, id, isAdmin))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, apperr.NotFound("user not found")
	}
	return a, err
}
