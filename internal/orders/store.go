// Package orders is the catalog and order data layer.
package orders

import "context"

type Store interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// PlaceOrder debits the account, decrements stock and writes the order with its items
	// in one transaction. Prices are read from the catalog, never trusted from the caller.
	PlaceOrder(ctx context.Context, accountID int64, items []ItemInput) (Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrdersByAccount(ctx context.Context, accountID int64) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id int64, status Status) (Order, error)
}
