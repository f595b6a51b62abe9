package orders

import "time"

type Product struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	ImageURL      string     `json:"imageUrl"`
	Category      string     `json:"category"`
	Price         int64      `json:"price"`
	Stock         int64      `json:"stock"`
	Unlimited     bool       `json:"unlimited"`
	Type          string     `json:"type"` // ticket | tshirt
	EventDate     *time.Time `json:"eventDate"`
	EventLocation string     `json:"eventLocation"`
	Sizes         string     `json:"sizes"` // comma separated, t-shirts only
	CreatedAt     time.Time  `json:"createdAt"`
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	ImageURL      *string    `json:"imageUrl"`
	Category      *string    `json:"category"`
	Price         *int64     `json:"price" validate:"omitempty,gte=0"`
	Stock         *int64     `json:"stock" validate:"omitempty,gte=0"`
	Unlimited     *bool      `json:"unlimited"`
	EventDate     *time.Time `json:"eventDate"`
	EventLocation *string    `json:"eventLocation"`
	Sizes         *string    `json:"sizes"`
}

func (p ProductPatch) Apply(to *Product) {
	if p.Name != nil {
		to.Name = *p.Name
	}
	if p.Description != nil {
		to.Description = *p.Description
	}
	if p.ImageURL != nil {
		to.ImageURL = *p.ImageURL
	}
	if p.Category != nil {
		to.Category = *p.Category
	}
	if p.Price != nil {
		to.Price = *p.Price
	}
	if p.Stock != nil {
		to.Stock = *p.Stock
	}
	if p.Unlimited != nil {
		to.Unlimited = *p.Unlimited
	}
	if p.EventDate != nil {
		to.EventDate = p.EventDate
	}
	if p.EventLocation != nil {
		to.EventLocation = *p.EventLocation
	}
	if p.Sizes != nil {
		to.Sizes = *p.Sizes
	}
}

type Order struct {
	ID          int64       `json:"id"`
	AccountID   int64       `json:"userId"`
	TotalPoints int64       `json:"totalPoints"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	Items       []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID           int64  `json:"id"`
	OrderID      int64  `json:"orderId"`
	ProductID    int64  `json:"productId"`
	Quantity     int64  `json:"quantity"`
	Size         string `json:"size,omitempty"`
	PricePerItem int64  `json:"pricePerItem"`
}

type ItemInput struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0,lte=10000"`
	Size      string `json:"size"`
}
