package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/SaugatGautam100/plexify/internal/domain"
)

// StockStore is the catalog as seen by order placement. DecrementStock must be
// a single conditional update that never takes stock below zero; when it
// refuses it returns *domain.InsufficientStockError or
// *domain.ProductNotFoundError.
type StockStore interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	DecrementStock(ctx context.Context, productID string, qty int) (domain.Product, error)
	IncrementStock(ctx context.Context, productID string, qty int) (domain.Product, error)
}

// MaxLineQuantity bounds one line, after merging, to the range of the
// stock_quantity column.
const MaxLineQuantity = math.MaxInt32

type ItemRequest struct {
	ProductID string
	Quantity  int
}

// Reservation holds the line item snapshots whose stock has been taken.
type Reservation struct {
	Items []domain.LineItem
}

// Reserver validates every requested item before touching stock, then
// decrements in product id order. A failed decrement gives back everything
// taken earlier in the same call.
type Reserver struct {
	store  StockStore
	logger *slog.Logger
}

func NewReserver(store StockStore, logger *slog.Logger) *Reserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reserver{store: store, logger: logger}
}

func (r *Reserver) Reserve(ctx context.Context, reqs []ItemRequest) (Reservation, error) {
	lines, err := normalizeItems(reqs)
	if err != nil {
		return Reservation{}, err
	}

	items := make([]domain.LineItem, 0, len(lines))
	for _, line := range lines {
		product, err := r.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrInvalidID) {
				return Reservation{}, &domain.ProductNotFoundError{ProductID: line.ProductID}
			}
			return Reservation{}, fmt.Errorf("get product %s: %w", line.ProductID, err)
		}
		if !product.Active {
			return Reservation{}, &domain.ProductNotFoundError{ProductID: line.ProductID}
		}
		if !product.CanFulfill(line.Quantity) {
			return Reservation{}, &domain.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.StockQuantity,
			}
		}
		items = append(items, domain.LineItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.ImageURL,
			UnitPrice:    product.Price,
			Quantity:     line.Quantity,
			SellerID:     product.SellerID,
			SellerName:   product.SellerName,
		})
	}

	ordered := make([]domain.LineItem, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	taken := make([]domain.LineItem, 0, len(ordered))
	for _, item := range ordered {
		if _, err := r.store.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			_ = r.release(ctx, taken, slog.LevelError)
			if isDomainError(err) {
				return Reservation{}, err
			}
			return Reservation{}, fmt.Errorf("decrement stock %s: %w", item.ProductID, err)
		}
		taken = append(taken, item)
	}

	return Reservation{Items: items}, nil
}

// Release returns the reserved quantities to the catalog.
func (r *Reserver) Release(ctx context.Context, res Reservation) error {
	return r.release(ctx, res.Items, slog.LevelError)
}

// ReleaseInTx is Release for a reservation taken inside a transaction that is
// about to roll back. An aborted transaction refuses every increment, so
// failures are logged at debug level.
func (r *Reserver) ReleaseInTx(ctx context.Context, res Reservation) error {
	return r.release(ctx, res.Items, slog.LevelDebug)
}

func (r *Reserver) release(ctx context.Context, items []domain.LineItem, failLevel slog.Level) error {
	// Compensation must run even if the request was cancelled.
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if _, err := r.store.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			r.logger.Log(ctx, failLevel, "release stock failed",
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("release %s: %w", item.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

// normalizeItems rejects empty carts and bad quantities, and merges repeated
// products into one line in first-seen order.
func normalizeItems(reqs []ItemRequest) ([]ItemRequest, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	out := make([]ItemRequest, 0, len(reqs))
	index := make(map[string]int, len(reqs))
	for _, req := range reqs {
		if req.ProductID == "" {
			return nil, domain.ErrInvalidID
		}
		if req.Quantity < 1 || req.Quantity > MaxLineQuantity {
			return nil, domain.ErrInvalidQuantity
		}
		if i, ok := index[req.ProductID]; ok {
			if req.Quantity > MaxLineQuantity-out[i].Quantity {
				return nil, domain.ErrInvalidQuantity
			}
			out[i].Quantity += req.Quantity
			continue
		}
		index[req.ProductID] = len(out)
		out = append(out, req)
	}
	return out, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrProductNotFound)
}
