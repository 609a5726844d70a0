package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry owned by exactly one seller.
type Product struct {
	ID            string
	Name          string
	Description   string
	ImageURL      string
	Price         decimal.Decimal
	StockQuantity int
	InStock       bool
	SellerID      string
	SellerName    string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetStock updates the quantity and keeps InStock consistent with it.
func (p *Product) SetStock(quantity int) {
	p.StockQuantity = quantity
	p.InStock = quantity > 0
}

// CanFulfill reports whether qty units can be taken from the current stock.
func (p Product) CanFulfill(qty int) bool {
	return p.Active && p.InStock && p.StockQuantity >= qty
}

func (p Product) Validate() error {
	if p.Name == "" {
		return ErrProductNameRequired
	}
	if !p.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if p.StockQuantity < 0 {
		return ErrInvalidStock
	}
	return nil
}
