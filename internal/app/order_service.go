package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SaugatGautam100/plexify/internal/clock"
	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/SaugatGautam100/plexify/internal/pricing"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindOrderByIdempotencyKey(ctx context.Context, buyerID, key string) (*domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	UpdateOrder(ctx context.Context, order domain.Order) error
	ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)
}

// OrderFilter selects orders by buyer or by a seller appearing in the items.
type OrderFilter struct {
	BuyerID  string
	SellerID string
	Limit    int
	Offset   int
}

// Notifier receives order events after they are committed. Errors are logged
// and never fail the request.
type Notifier interface {
	OrderPlaced(ctx context.Context, order domain.Order) error
	OrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus) error
}

type OrderService struct {
	repo     OrderRepository
	catalog  StockStore
	reserver *Reserver
	clock    clock.Clock
	pricing  pricing.Policy
	notifier Notifier
	logger   *slog.Logger
}

func NewOrderService(repo OrderRepository, catalog StockStore, clk clock.Clock, opts ...OrderServiceOption) *OrderService {
	svc := &OrderService{
		repo:     repo,
		catalog:  catalog,
		clock:    clk,
		pricing:  pricing.DefaultPolicy(),
		notifier: nopNotifier{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.reserver = NewReserver(catalog, svc.logger)
	return svc
}

type OrderServiceOption func(*OrderService)

func WithPricingPolicy(p pricing.Policy) OrderServiceOption {
	return func(s *OrderService) {
		s.pricing = p
	}
}

func WithNotifier(n Notifier) OrderServiceOption {
	return func(s *OrderService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l *slog.Logger) OrderServiceOption {
	return func(s *OrderService) {
		if l != nil {
			s.logger = l
		}
	}
}

type PlaceOrderInput struct {
	Items           []ItemRequest
	ShippingAddress domain.Address
	PaymentMethod   domain.PaymentMethod
	IdempotencyKey  string
}

type PlaceOrderResult struct {
	Order   domain.Order
	Created bool
}

// PlaceOrder reserves stock for every item, prices the order and stores it.
// Either all of that happens or none of it does.
func (s *OrderService) PlaceOrder(ctx context.Context, actor domain.Actor, in PlaceOrderInput) (PlaceOrderResult, error) {
	if !actor.Authenticated() {
		return PlaceOrderResult{}, domain.ErrUnauthenticated
	}
	if !actor.IsBuyer() {
		return PlaceOrderResult{}, domain.ErrForbidden
	}
	items, err := normalizeItems(in.Items)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return PlaceOrderResult{}, err
	}
	if !in.PaymentMethod.Valid() {
		return PlaceOrderResult{}, domain.ErrInvalidPaymentMethod
	}

	if in.IdempotencyKey != "" {
		existing, err := s.repo.FindOrderByIdempotencyKey(ctx, actor.ID, in.IdempotencyKey)
		if err != nil {
			return PlaceOrderResult{}, err
		}
		if existing != nil {
			return replayOrder(*existing, items)
		}
	}

	now := s.clock.Now()
	var order domain.Order

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.reserver.Reserve(txCtx, items)
		if err != nil {
			return err
		}

		totals := s.pricing.Calculate(res.Items)
		order = domain.Order{
			ID:              newID(),
			OrderNumber:     newOrderNumber(now),
			Buyer:           actor.Buyer(),
			Items:           res.Items,
			Subtotal:        totals.Subtotal,
			ShippingFee:     totals.Shipping,
			Tax:             totals.Tax,
			Total:           totals.Total,
			PaymentMethod:   in.PaymentMethod,
			PaymentStatus:   domain.PaymentStatusPaid,
			ShippingAddress: in.ShippingAddress,
			Status:          domain.OrderStatusConfirmed,
			IdempotencyKey:  in.IdempotencyKey,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := s.repo.CreateOrder(txCtx, order); err != nil {
			_ = s.reserver.ReleaseInTx(txCtx, res)
			return err
		}
		return nil
	})
	if err != nil {
		// A concurrent retry with the same key won the insert; answer with its order.
		if errors.Is(err, domain.ErrIdempotencyConflict) && in.IdempotencyKey != "" {
			existing, findErr := s.repo.FindOrderByIdempotencyKey(ctx, actor.ID, in.IdempotencyKey)
			if findErr == nil && existing != nil {
				return replayOrder(*existing, items)
			}
		}
		return PlaceOrderResult{}, err
	}

	s.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"buyer_id", order.Buyer.ID,
		"items", len(order.Items),
		"total", pricing.Format(order.Total),
	)
	if err := s.notifier.OrderPlaced(ctx, order); err != nil {
		s.logger.WarnContext(ctx, "notify order placed", "order_id", order.ID, "error", err)
	}

	return PlaceOrderResult{Order: order, Created: true}, nil
}

// replayOrder answers a retried placement. The retry must ask for the same
// products and quantities as the stored order.
func replayOrder(existing domain.Order, items []ItemRequest) (PlaceOrderResult, error) {
	stored := make(map[string]int, len(existing.Items))
	for _, item := range existing.Items {
		stored[item.ProductID] += item.Quantity
	}
	if len(stored) != len(items) {
		return PlaceOrderResult{}, domain.ErrIdempotencyConflict
	}
	for _, item := range items {
		if stored[item.ProductID] != item.Quantity {
			return PlaceOrderResult{}, domain.ErrIdempotencyConflict
		}
	}
	return PlaceOrderResult{Order: existing, Created: false}, nil
}

type OrderPage struct {
	Orders []domain.Order
	Page   int
	Limit  int
	Total  int
}

// ListOrders returns the buyer's own orders, or for a seller the orders that
// contain at least one of their products, newest first.
func (s *OrderService) ListOrders(ctx context.Context, actor domain.Actor, page PageRequest) (OrderPage, error) {
	if !actor.Authenticated() {
		return OrderPage{}, domain.ErrUnauthenticated
	}
	page = page.normalize()

	filter := OrderFilter{Limit: page.Limit, Offset: page.offset()}
	if actor.IsSeller() {
		filter.SellerID = actor.ID
	} else {
		filter.BuyerID = actor.ID
	}

	orders, total, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return OrderPage{}, err
	}
	return OrderPage{Orders: orders, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (domain.Order, error) {
	if !actor.Authenticated() {
		return domain.Order{}, domain.ErrUnauthenticated
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidID) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	if !order.VisibleTo(actor) {
		return domain.Order{}, domain.ErrForbidden
	}
	return order, nil
}

// UpdateStatus applies a seller's status command. Cancelling puts the ordered
// quantities back into stock.
func (s *OrderService) UpdateStatus(ctx context.Context, actor domain.Actor, orderID string, cmd domain.StatusCommand) (domain.Order, error) {
	if !actor.Authenticated() {
		return domain.Order{}, domain.ErrUnauthenticated
	}
	if !actor.IsSeller() {
		return domain.Order{}, domain.ErrForbidden
	}

	now := s.clock.Now()
	var (
		updated  domain.Order
		previous domain.OrderStatus
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidID) {
				return domain.ErrOrderNotFound
			}
			return err
		}
		if !order.HasSeller(actor.ID) {
			return domain.ErrForbidden
		}

		previous = order.Status
		if err := order.Apply(cmd, now); err != nil {
			return err
		}

		if order.Status == domain.OrderStatusCancelled && previous != domain.OrderStatusCancelled {
			if err := s.restock(txCtx, order); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateOrder(txCtx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if updated.Status != previous {
		s.logger.InfoContext(ctx, "order status changed",
			"order_id", updated.ID,
			"from", previous,
			"to", updated.Status,
			"seller_id", actor.ID,
		)
		if err := s.notifier.OrderStatusChanged(ctx, updated, previous); err != nil {
			s.logger.WarnContext(ctx, "notify status change", "order_id", updated.ID, "error", err)
		}
	}
	return updated, nil
}

func (s *OrderService) restock(ctx context.Context, order domain.Order) error {
	for _, item := range order.Items {
		if _, err := s.catalog.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				s.logger.WarnContext(ctx, "restock skipped, product missing",
					"order_id", order.ID,
					"product_id", item.ProductID,
				)
				continue
			}
			return fmt.Errorf("restock %s: %w", item.ProductID, err)
		}
	}
	return nil
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(context.Context, domain.Order) error { return nil }

func (nopNotifier) OrderStatusChanged(context.Context, domain.Order, domain.OrderStatus) error {
	return nil
}
