package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SaugatGautam100/plexify/internal/app"
	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, order_number, buyer_id, buyer_email, buyer_name, items,
subtotal, shipping_fee, tax, total, payment_method, payment_status, shipping_address,
status, tracking_number, delivery_partner, estimated_delivery, cancellation_reason,
COALESCE(idempotency_key, ''), created_at, updated_at, delivered_at, cancelled_at`

const idempotencyConstraint = "orders_buyer_idempotency_key"

type OrderRepository struct {
	db
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db{pool: pool}}
}

// CreateOrder writes the whole order in one statement. A second order with
// the same buyer and idempotency key reports ErrIdempotencyConflict.
func (r *OrderRepository) CreateOrder(ctx context.Context, o domain.Order) error {
	const stmt = `
INSERT INTO orders (id, order_number, buyer_id, buyer_email, buyer_name, items, seller_ids,
	subtotal, shipping_fee, tax, total, payment_method, payment_status, shipping_address,
	status, tracking_number, delivery_partner, estimated_delivery, cancellation_reason,
	idempotency_key, created_at, updated_at, delivered_at, cancelled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
	NULLIF($20::text, ''), $21, $22, $23, $24)`

	_, err := r.exec(ctx, stmt,
		o.ID, o.OrderNumber, o.Buyer.ID, o.Buyer.Email, o.Buyer.Name, o.Items, o.SellerIDs(),
		o.Subtotal, o.ShippingFee, o.Tax, o.Total, string(o.PaymentMethod), string(o.PaymentStatus), o.ShippingAddress,
		string(o.Status), o.TrackingNumber, o.DeliveryPartner, o.EstimatedDelivery, o.CancellationReason,
		o.IdempotencyKey, o.CreatedAt, o.UpdatedAt, o.DeliveredAt, o.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == idempotencyConstraint {
			return domain.ErrIdempotencyConflict
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindOrderByIdempotencyKey(ctx context.Context, buyerID, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 AND idempotency_key = $2`

	o, err := scanOrder(r.queryRow(ctx, query, buyerID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}
	return &o, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
}

func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
}

func (r *OrderRepository) getOrder(ctx context.Context, query, orderID string) (domain.Order, error) {
	o, err := scanOrder(r.queryRow(ctx, query, orderID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// UpdateOrder persists the fields status commands may change. Line items,
// totals and snapshots are never rewritten.
func (r *OrderRepository) UpdateOrder(ctx context.Context, o domain.Order) error {
	const stmt = `
UPDATE orders
SET status = $2, tracking_number = $3, delivery_partner = $4, estimated_delivery = $5,
	cancellation_reason = $6, updated_at = $7, delivered_at = $8, cancelled_at = $9
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		o.ID, string(o.Status), o.TrackingNumber, o.DeliveryPartner, o.EstimatedDelivery,
		o.CancellationReason, o.UpdatedAt, o.DeliveredAt, o.CancelledAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter app.OrderFilter) ([]domain.Order, int, error) {
	const where = `
WHERE ($1::text = '' OR buyer_id = $1)
	AND ($2::text = '' OR seller_ids @> ARRAY[$2::text])`

	var total int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM orders`+where, filter.BuyerID, filter.SellerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where + `
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4`
	rows, err := r.query(ctx, query, filter.BuyerID, filter.SellerID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, filter.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o       domain.Order
		method  string
		payment string
		status  string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Buyer.ID, &o.Buyer.Email, &o.Buyer.Name, &o.Items,
		&o.Subtotal, &o.ShippingFee, &o.Tax, &o.Total, &method, &payment, &o.ShippingAddress,
		&status, &o.TrackingNumber, &o.DeliveryPartner, &o.EstimatedDelivery, &o.CancellationReason,
		&o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt, &o.CancelledAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaymentStatus = domain.PaymentStatus(payment)
	o.Status = domain.OrderStatus(status)
	return o, nil
}
