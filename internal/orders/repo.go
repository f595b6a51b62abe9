package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DB }

var _ Store = (*Repo)(nil)

const productCols = `id, name, description, image_url, category, price, stock, unlimited, type,
	event_date, event_location, sizes, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.Category, &p.Price, &p.Stock,
		&p.Unlimited, &p.Type, &p.EventDate, &p.EventLocation, &p.Sizes, &p.CreatedAt)
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product not found")
	}
	return p, err
}

func (r *Repo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products(name, description, image_url, category, price, stock, unlimited, type,
		                     event_date, event_location, sizes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+productCols,
		p.Name, p.Description, p.ImageURL, p.Category, p.Price, p.Stock, p.Unlimited, p.Type,
		p.EventDate, p.EventLocation, p.Sizes))
}

func (r *Repo) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return Product{}, err
	}
	patch.Apply(&p)

	if _, err := tx.Exec(ctx, `
		UPDATE products SET name=$2, description=$3, image_url=$4, category=$5, price=$6, stock=$7,
		       unlimited=$8, event_date=$9, event_location=$10, sizes=$11
		WHERE id=$1`,
		id, p.Name, p.Description, p.ImageURL, p.Category, p.Price, p.Stock, p.Unlimited,
		p.EventDate, p.EventLocation, p.Sizes); err != nil {
		return Product{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return apperr.Conflict("product has orders and cannot be deleted")
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}
