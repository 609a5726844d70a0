package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodPayPal         PaymentMethod = "paypal"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodPayPal, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

type PaymentStatus string

// PaymentStatusPaid is set on every new order; there is no gateway.
const PaymentStatusPaid PaymentStatus = "paid"

// Address is a shipping address snapshot taken at order time.
type Address struct {
	Name   string `json:"name"`
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

func (a Address) Validate() error {
	for _, field := range []string{a.Name, a.Street, a.City, a.State, a.Zip} {
		if strings.TrimSpace(field) == "" {
			return ErrAddressRequired
		}
	}
	return nil
}

type Buyer struct {
	ID    string
	Email string
	Name  string
}

// LineItem is a frozen copy of a product at purchase time.
type LineItem struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	SellerID     string          `json:"sellerId"`
	SellerName   string          `json:"sellerName"`
}

func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is created once by placement and afterwards changes only through
// status commands (see Apply).
type Order struct {
	ID                 string
	OrderNumber        string
	Buyer              Buyer
	Items              []LineItem
	Subtotal           decimal.Decimal
	ShippingFee        decimal.Decimal
	Tax                decimal.Decimal
	Total              decimal.Decimal
	PaymentMethod      PaymentMethod
	PaymentStatus      PaymentStatus
	ShippingAddress    Address
	Status             OrderStatus
	TrackingNumber     string
	DeliveryPartner    string
	EstimatedDelivery  *time.Time
	CancellationReason string
	IdempotencyKey     string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
}

// SellerIDs returns the distinct sellers of the order's line items, sorted.
func (o Order) SellerIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if !slices.Contains(ids, item.SellerID) {
			ids = append(ids, item.SellerID)
		}
	}
	slices.Sort(ids)
	return ids
}

func (o Order) HasSeller(sellerID string) bool {
	if sellerID == "" {
		return false
	}
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// VisibleTo reports whether the actor may read the order: its buyer, or a
// seller owning at least one line item.
func (o Order) VisibleTo(actor Actor) bool {
	switch {
	case actor.IsBuyer():
		return o.Buyer.ID == actor.ID
	case actor.IsSeller():
		return o.HasSeller(actor.ID)
	}
	return false
}
