package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SaugatGautam100/plexify/internal/app"
	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/SaugatGautam100/plexify/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Catalog interface {
	CreateProduct(ctx context.Context, actor domain.Actor, in app.CreateProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, actor domain.Actor, productID string, in app.UpdateProductInput) (domain.Product, error)
	DeactivateProduct(ctx context.Context, actor domain.Actor, productID string) error
	GetProduct(ctx context.Context, actor domain.Actor, productID string) (domain.Product, error)
	ListProducts(ctx context.Context, sellerID string, page app.PageRequest) (app.ProductPage, error)
}

func HandleCreateProduct(svc Catalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		in := app.CreateProductInput{}
		if req.Name != nil {
			in.Name = *req.Name
		}
		if req.Description != nil {
			in.Description = *req.Description
		}
		if req.ImageURL != nil {
			in.ImageURL = *req.ImageURL
		}
		if req.Price != nil {
			in.Price = *req.Price
		}
		if req.StockQuantity != nil {
			in.StockQuantity = *req.StockQuantity
		}

		product, err := svc.CreateProduct(r.Context(), actorFromContext(r.Context()), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newProductResponse(product))
	}
}

// HandleListProducts lists active products, optionally for one seller.
func HandleListProducts(svc Catalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := parsePage(r)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidQuery, "page and limit must be positive integers")
			return
		}
		sellerID := strings.TrimSpace(r.URL.Query().Get("sellerId"))

		res, err := svc.ListProducts(r.Context(), sellerID, page)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		resp := productListResponse{
			Products: make([]productResponse, 0, len(res.Products)),
			Page:     res.Page,
			Limit:    res.Limit,
			Total:    res.Total,
		}
		for _, p := range res.Products {
			resp.Products = append(resp.Products, newProductResponse(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleGetProduct(svc Catalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := svc.GetProduct(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "productID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newProductResponse(product))
	}
}

func HandleUpdateProduct(svc Catalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		in := app.UpdateProductInput{
			Name:          req.Name,
			Description:   req.Description,
			ImageURL:      req.ImageURL,
			Price:         req.Price,
			StockQuantity: req.StockQuantity,
		}
		product, err := svc.UpdateProduct(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "productID"), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newProductResponse(product))
	}
}

func HandleDeleteProduct(svc Catalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeactivateProduct(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "productID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// productRequest serves both create and partial update. Price accepts a
// JSON number or a decimal string.
type productRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	ImageURL      *string          `json:"imageUrl"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stockQuantity"`
}

type productResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Price         string    `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	InStock       bool      `json:"inStock"`
	SellerID      string    `json:"sellerId"`
	SellerName    string    `json:"sellerName"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type productListResponse struct {
	Products []productResponse `json:"products"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	Total    int               `json:"total"`
}

func newProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		ImageURL:      p.ImageURL,
		Price:         pricing.Format(p.Price),
		StockQuantity: p.StockQuantity,
		InStock:       p.InStock,
		SellerID:      p.SellerID,
		SellerName:    p.SellerName,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
