package orders

import (
	"fmt"
	"math"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
)

// MaxQuantity caps a single order line.
const MaxQuantity = 10000

// StockLine is the locked catalog view of one product while an order is priced.
type StockLine struct {
	Price     int64
	Stock     int64
	Unlimited bool
}

// PriceOrder totals the order from catalog prices and checks stock per product,
// summing quantities when the same product appears more than once.
func PriceOrder(catalog map[int64]StockLine, items []ItemInput) (int64, error) {
	if len(items) == 0 {
		return 0, apperr.Validation("order has no items", map[string]string{"items": "required"})
	}
	wanted := map[int64]int64{}
	var total int64
	for _, it := range items {
		line, ok := catalog[it.ProductID]
		if !ok {
			return 0, apperr.NotFound(fmt.Sprintf("product not found: %d", it.ProductID))
		}
		if it.Quantity <= 0 || it.Quantity > MaxQuantity {
			return 0, apperr.Validation(fmt.Sprintf("invalid quantity for product %d", it.ProductID),
				map[string]string{"quantity": "range"})
		}
		if line.Price < 0 || (line.Price > 0 && it.Quantity > (math.MaxInt64-total)/line.Price) {
			return 0, apperr.Validation("order total too large", map[string]string{"items": "total"})
		}
		wanted[it.ProductID] += it.Quantity
		total += line.Price * it.Quantity
	}
	if total < 0 {
		return 0, apperr.Validation("order total too large", map[string]string{"items": "total"})
	}
	for id, qty := range wanted {
		line := catalog[id]
		if !line.Unlimited && line.Stock < qty {
			return 0, apperr.Validation(fmt.Sprintf("product out of stock: %d", id),
				map[string]string{"quantity": "stock"})
		}
	}
	return total, nil
}
