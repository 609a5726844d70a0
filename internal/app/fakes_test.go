package app

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func product(id string, price string, stock int, sellerID string) domain.Product {
	p := domain.Product{
		ID:         id,
		Name:       "Product " + id,
		ImageURL:   "https://img.example/" + id + ".png",
		Price:      decimal.RequireFromString(price),
		SellerID:   sellerID,
		SellerName: "Seller " + sellerID,
		Active:     true,
	}
	p.SetStock(stock)
	return p
}

// fakeCatalog mimics the store contract: DecrementStock is a conditional
// update under one lock.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product

	beforeDecrement func(c *fakeCatalog, productID string)
	incrementErr    error
	decremented     []string
	incremented     []string
}

func newFakeCatalog(products ...domain.Product) *fakeCatalog {
	m := make(map[string]domain.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeCatalog{products: m}
}

func (c *fakeCatalog) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *fakeCatalog) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (c *fakeCatalog) GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error) {
	return c.GetProduct(ctx, productID)
}

func (c *fakeCatalog) DecrementStock(_ context.Context, productID string, qty int) (domain.Product, error) {
	if c.beforeDecrement != nil {
		c.beforeDecrement(c, productID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok || !p.Active {
		return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	if p.StockQuantity < qty {
		return domain.Product{}, &domain.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   qty,
			Available:   p.StockQuantity,
		}
	}
	p.SetStock(p.StockQuantity - qty)
	c.products[productID] = p
	c.decremented = append(c.decremented, productID)
	return p, nil
}

func (c *fakeCatalog) IncrementStock(_ context.Context, productID string, qty int) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.incrementErr != nil {
		return domain.Product{}, c.incrementErr
	}
	p, ok := c.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	p.SetStock(p.StockQuantity + qty)
	c.products[productID] = p
	c.incremented = append(c.incremented, productID)
	return p, nil
}

func (c *fakeCatalog) CreateProduct(_ context.Context, product domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[product.ID] = product
	return nil
}

func (c *fakeCatalog) UpdateProduct(_ context.Context, product domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	c.products[product.ID] = product
	return nil
}

func (c *fakeCatalog) ListProducts(_ context.Context, filter ProductFilter) ([]domain.Product, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Product
	for _, p := range c.products {
		if !p.Active {
			continue
		}
		if filter.SellerID != "" && p.SellerID != filter.SellerID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filter.Offset, filter.Limit), len(out), nil
}

func (c *fakeCatalog) stock(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[productID].StockQuantity
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	createErr error
	updates   int
}

func newFakeOrderRepo(orders ...domain.Order) *fakeOrderRepo {
	m := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		m[o.ID] = o
	}
	return &fakeOrderRepo{orders: m}
}

func (f *fakeOrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeOrderRepo) FindOrderByIdempotencyKey(_ context.Context, buyerID, key string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.Buyer.ID == buyerID && o.IdempotencyKey == key {
			copy := o
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if order.IdempotencyKey != "" {
		for _, o := range f.orders {
			if o.Buyer.ID == order.Buyer.ID && o.IdempotencyKey == order.IdempotencyKey {
				return domain.ErrIdempotencyConflict
			}
		}
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	return f.GetOrder(ctx, orderID)
}

func (f *fakeOrderRepo) UpdateOrder(_ context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	f.orders[order.ID] = order
	f.updates++
	return nil
}

func (f *fakeOrderRepo) ListOrders(_ context.Context, filter OrderFilter) ([]domain.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if filter.BuyerID != "" && o.Buyer.ID != filter.BuyerID {
			continue
		}
		if filter.SellerID != "" && !o.HasSeller(filter.SellerID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Offset, filter.Limit), len(out), nil
}

func (f *fakeOrderRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type recordingNotifier struct {
	mu      sync.Mutex
	placed  []string
	changed []string
	err     error
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, order domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, order.ID)
	return n.err
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, order domain.Order, previous domain.OrderStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, string(previous)+"->"+string(order.Status))
	return n.err
}
