package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/jackc/pgx/v5"
)

// PlaceOrder: lock account (FOR UPDATE) -> lock products -> check stock and balance ->
// insert order + items, decrement stock, debit points. Any rejection rolls everything back.
func (r *Repo) PlaceOrder(ctx context.Context, accountID int64, items []ItemInput) (Order, error) {
	if len(items) == 0 {
		return Order{}, apperr.Validation("order has no items", map[string]string{"items": "required"})
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance int64
	err = tx.QueryRow(ctx, `SELECT points FROM accounts WHERE id=$1 FOR UPDATE`, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return Order{}, err
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	rows, err := tx.Query(ctx, `
		SELECT id, price, stock, unlimited FROM products
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return Order{}, err
	}
	catalog := map[int64]StockLine{}
	for rows.Next() {
		var id int64
		var l StockLine
		if err := rows.Scan(&id, &l.Price, &l.Stock, &l.Unlimited); err != nil {
			rows.Close()
			return Order{}, err
		}
		catalog[id] = l
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Order{}, err
	}

	total, err := PriceOrder(catalog, items)
	if err != nil {
		return Order{}, err
	}
	if total > balance {
		return Order{}, apperr.InsufficientBalance("Insufficient points")
	}

	o := Order{AccountID: accountID, TotalPoints: total, Status: StatusPending}
	if err := tx.QueryRow(ctx, `
		INSERT INTO orders(account_id, total_points, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, accountID, total, StatusPending,
	).Scan(&o.ID, &o.CreatedAt); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		line := catalog[it.ProductID]
		item := OrderItem{OrderID: o.ID, ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size, PricePerItem: line.Price}
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, size, price_per_item)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id`, o.ID, it.ProductID, it.Quantity, it.Size, line.Price,
		).Scan(&item.ID); err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
		o.Items = append(o.Items, item)

		if !line.Unlimited {
			if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id=$1`, it.ProductID, it.Quantity); err != nil {
				return Order{}, fmt.Errorf("decrement stock: %w", err)
			}
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET points = points - $2 WHERE id=$1`, accountID, total); err != nil {
		return Order{}, fmt.Errorf("debit account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

const orderCols = `id, account_id, total_points, status, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.AccountID, &o.TotalPoints, &o.Status, &o.CreatedAt)
	return o, err
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return Order{}, err
	}
	o.Items, err = r.ListOrderItems(ctx, id)
	return o, err
}

func (r *Repo) ListOrdersByAccount(ctx context.Context, accountID int64) ([]Order, error) {
	return r.listOrders(ctx, `SELECT `+orderCols+` FROM orders WHERE account_id=$1 ORDER BY created_at DESC, id DESC`, accountID)
}

func (r *Repo) ListOrders(ctx context.Context) ([]Order, error) {
	return r.listOrders(ctx, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (r *Repo) listOrders(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, quantity, size, price_per_item
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Size, &it.PricePerItem); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateOrderStatus(ctx context.Context, id int64, status Status) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, status) {
		return Order{}, apperr.Validation(fmt.Sprintf("cannot move order from %s to %s", o.Status, status),
			map[string]string{"status": "transition"})
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, status); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	o.Status = status
	return o, nil
}
