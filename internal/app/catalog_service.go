package app

import (
	"context"
	"errors"
	"strings"

	"github.com/SaugatGautam100/plexify/internal/clock"
	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateProduct(ctx context.Context, product domain.Product) error
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
}

// ProductFilter lists active products, optionally for one seller.
type ProductFilter struct {
	SellerID string
	Limit    int
	Offset   int
}

// CatalogService holds the seller-facing product operations.
type CatalogService struct {
	repo  ProductRepository
	clock clock.Clock
}

func NewCatalogService(repo ProductRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateProductInput struct {
	Name          string
	Description   string
	ImageURL      string
	Price         decimal.Decimal
	StockQuantity int
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor domain.Actor, in CreateProductInput) (domain.Product, error) {
	if err := requireSeller(actor); err != nil {
		return domain.Product{}, err
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:          newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		SellerID:    actor.ID,
		SellerName:  actor.Name,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	product.SetStock(in.StockQuantity)
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// UpdateProductInput is a partial update; nil fields are left alone.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	ImageURL      *string
	Price         *decimal.Decimal
	StockQuantity *int
}

func (s *CatalogService) UpdateProduct(ctx context.Context, actor domain.Actor, productID string, in UpdateProductInput) (domain.Product, error) {
	if err := requireSeller(actor); err != nil {
		return domain.Product{}, err
	}

	var result domain.Product
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		product, err := s.ownedProductForUpdate(txCtx, actor, productID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			product.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			product.Description = *in.Description
		}
		if in.ImageURL != nil {
			product.ImageURL = *in.ImageURL
		}
		if in.Price != nil {
			product.Price = *in.Price
		}
		if in.StockQuantity != nil {
			product.SetStock(*in.StockQuantity)
		}
		if err := product.Validate(); err != nil {
			return err
		}
		product.UpdatedAt = s.clock.Now()

		if err := s.repo.UpdateProduct(txCtx, product); err != nil {
			return err
		}
		result = product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return result, nil
}

// DeactivateProduct soft-deletes a product. Orders keep their snapshots.
func (s *CatalogService) DeactivateProduct(ctx context.Context, actor domain.Actor, productID string) error {
	if err := requireSeller(actor); err != nil {
		return err
	}

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		product, err := s.ownedProductForUpdate(txCtx, actor, productID)
		if err != nil {
			return err
		}
		product.Active = false
		product.UpdatedAt = s.clock.Now()
		return s.repo.UpdateProduct(txCtx, product)
	})
}

// GetProduct returns active products to anyone and inactive ones to their
// seller only.
func (s *CatalogService) GetProduct(ctx context.Context, actor domain.Actor, productID string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidID) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	if !product.Active && !(actor.IsSeller() && product.SellerID == actor.ID) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

type ProductPage struct {
	Products []domain.Product
	Page     int
	Limit    int
	Total    int
}

func (s *CatalogService) ListProducts(ctx context.Context, sellerID string, page PageRequest) (ProductPage, error) {
	page = page.normalize()
	products, total, err := s.repo.ListProducts(ctx, ProductFilter{
		SellerID: sellerID,
		Limit:    page.Limit,
		Offset:   page.offset(),
	})
	if err != nil {
		return ProductPage{}, err
	}
	return ProductPage{Products: products, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

func (s *CatalogService) ownedProductForUpdate(ctx context.Context, actor domain.Actor, productID string) (domain.Product, error) {
	product, err := s.repo.GetProductForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidID) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	if !product.Active {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if product.SellerID != actor.ID {
		return domain.Product{}, domain.ErrForbidden
	}
	return product, nil
}

func requireSeller(actor domain.Actor) error {
	if !actor.Authenticated() {
		return domain.ErrUnauthenticated
	}
	if !actor.IsSeller() {
		return domain.ErrForbidden
	}
	return nil
}
