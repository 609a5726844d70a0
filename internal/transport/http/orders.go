package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SaugatGautam100/plexify/internal/app"
	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/SaugatGautam100/plexify/internal/pricing"
	"github.com/go-chi/chi/v5"
)

const idempotencyHeader = "Idempotency-Key"

// Orders is the order service as seen by the HTTP layer.
type Orders interface {
	PlaceOrder(ctx context.Context, actor domain.Actor, in app.PlaceOrderInput) (app.PlaceOrderResult, error)
	ListOrders(ctx context.Context, actor domain.Actor, page app.PageRequest) (app.OrderPage, error)
	GetOrder(ctx context.Context, actor domain.Actor, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, orderID string, cmd domain.StatusCommand) (domain.Order, error)
}

// HandlePlaceOrder answers 201 for a new order and 200 when an
// Idempotency-Key replays an existing one.
func HandlePlaceOrder(svc Orders, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeOrderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		in := app.PlaceOrderInput{
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
			IdempotencyKey:  strings.TrimSpace(r.Header.Get(idempotencyHeader)),
		}
		for _, item := range req.Items {
			in.Items = append(in.Items, app.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		res, err := svc.PlaceOrder(r.Context(), actorFromContext(r.Context()), in)
		if err != nil {
			// An unknown product in a cart is a bad request, not a missing resource.
			if errors.Is(err, domain.ErrProductNotFound) {
				writeError(w, http.StatusBadRequest, codeProductNotFound, err.Error())
				return
			}
			writeServiceError(w, r, logger, err)
			return
		}

		status := http.StatusCreated
		if !res.Created {
			status = http.StatusOK
		}
		writeJSON(w, status, newOrderResponse(res.Order))
	}
}

func HandleListOrders(svc Orders, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := parsePage(r)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidQuery, "page and limit must be positive integers")
			return
		}

		res, err := svc.ListOrders(r.Context(), actorFromContext(r.Context()), page)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		resp := orderListResponse{
			Orders: make([]orderResponse, 0, len(res.Orders)),
			Page:   res.Page,
			Limit:  res.Limit,
			Total:  res.Total,
		}
		for _, o := range res.Orders {
			resp.Orders = append(resp.Orders, newOrderResponse(o))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleGetOrder(svc Orders, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.GetOrder(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "orderID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

func HandleUpdateOrderStatus(svc Orders, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateStatusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		cmd, err := req.command()
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "orderID"), cmd)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

type placeOrderRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	ShippingAddress domain.Address `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
}

type updateStatusRequest struct {
	Status             *string    `json:"status"`
	TrackingNumber     *string    `json:"trackingNumber"`
	DeliveryPartner    *string    `json:"deliveryPartner"`
	EstimatedDelivery  *time.Time `json:"estimatedDelivery"`
	CancellationReason *string    `json:"cancellationReason"`
}

// command maps the body to exactly one status command. Tracking fields go
// with processing, shipped, delivered or no status; a cancellation reason
// only goes with cancelled.
func (r updateStatusRequest) command() (domain.StatusCommand, error) {
	tracking := domain.Tracking{EstimatedDelivery: r.EstimatedDelivery}
	if r.TrackingNumber != nil {
		tracking.Number = strings.TrimSpace(*r.TrackingNumber)
	}
	if r.DeliveryPartner != nil {
		tracking.Partner = strings.TrimSpace(*r.DeliveryPartner)
	}
	hasTracking := r.TrackingNumber != nil || r.DeliveryPartner != nil || r.EstimatedDelivery != nil
	hasReason := r.CancellationReason != nil

	if r.Status == nil {
		if hasReason || !hasTracking {
			return nil, domain.ErrInvalidCommand
		}
		return domain.UpdateTracking{Tracking: tracking}, nil
	}

	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(*r.Status)))
	if status == domain.OrderStatusCancelled {
		if hasTracking {
			return nil, domain.ErrInvalidCommand
		}
		reason := ""
		if r.CancellationReason != nil {
			reason = strings.TrimSpace(*r.CancellationReason)
		}
		return domain.Cancel{Reason: reason}, nil
	}
	if hasReason {
		return nil, domain.ErrInvalidCommand
	}

	switch status {
	case domain.OrderStatusProcessing:
		return domain.SetProcessing{Tracking: tracking}, nil
	case domain.OrderStatusShipped:
		return domain.Ship{Tracking: tracking}, nil
	case domain.OrderStatusDelivered:
		return domain.Deliver{Tracking: tracking}, nil
	default:
		return nil, domain.ErrInvalidStatus
	}
}

type buyerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type lineItemResponse struct {
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	ProductImage string `json:"productImage,omitempty"`
	UnitPrice    string `json:"unitPrice"`
	Quantity     int    `json:"quantity"`
	Amount       string `json:"amount"`
	SellerID     string `json:"sellerId"`
	SellerName   string `json:"sellerName"`
}

type orderResponse struct {
	ID                 string             `json:"id"`
	OrderNumber        string             `json:"orderNumber"`
	Buyer              buyerResponse      `json:"buyer"`
	Items              []lineItemResponse `json:"items"`
	Subtotal           string             `json:"subtotal"`
	ShippingFee        string             `json:"shippingFee"`
	Tax                string             `json:"tax"`
	Total              string             `json:"total"`
	PaymentMethod      string             `json:"paymentMethod"`
	PaymentStatus      string             `json:"paymentStatus"`
	ShippingAddress    domain.Address     `json:"shippingAddress"`
	Status             string             `json:"status"`
	TrackingNumber     string             `json:"trackingNumber,omitempty"`
	DeliveryPartner    string             `json:"deliveryPartner,omitempty"`
	EstimatedDelivery  *time.Time         `json:"estimatedDelivery,omitempty"`
	CancellationReason string             `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	DeliveredAt        *time.Time         `json:"deliveredAt,omitempty"`
	CancelledAt        *time.Time         `json:"cancelledAt,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
	Total  int             `json:"total"`
}

func newOrderResponse(o domain.Order) orderResponse {
	items := make([]lineItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, lineItemResponse{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			UnitPrice:    pricing.Format(item.UnitPrice),
			Quantity:     item.Quantity,
			Amount:       pricing.Format(item.Amount()),
			SellerID:     item.SellerID,
			SellerName:   item.SellerName,
		})
	}
	return orderResponse{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		Buyer:              buyerResponse{ID: o.Buyer.ID, Email: o.Buyer.Email, Name: o.Buyer.Name},
		Items:              items,
		Subtotal:           pricing.Format(o.Subtotal),
		ShippingFee:        pricing.Format(o.ShippingFee),
		Tax:                pricing.Format(o.Tax),
		Total:              pricing.Format(o.Total),
		PaymentMethod:      string(o.PaymentMethod),
		PaymentStatus:      string(o.PaymentStatus),
		ShippingAddress:    o.ShippingAddress,
		Status:             string(o.Status),
		TrackingNumber:     o.TrackingNumber,
		DeliveryPartner:    o.DeliveryPartner,
		EstimatedDelivery:  o.EstimatedDelivery,
		CancellationReason: o.CancellationReason,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
	}
}
