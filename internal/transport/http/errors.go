package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidQuery         = "invalid_query"
	codeInvalidID            = "invalid_id"
	codeEmptyOrder           = "empty_order"
	codeInvalidQuantity      = "invalid_quantity"
	codeAddressRequired      = "shipping_address_required"
	codeInvalidPaymentMethod = "invalid_payment_method"
	codeProductNotFound      = "product_not_found"
	codeInsufficientStock    = "insufficient_stock"
	codeOrderNotFound        = "order_not_found"
	codeInvalidStatus        = "invalid_status"
	codeInvalidStatusUpdate  = "invalid_status_update"
	codeInvalidTransition    = "invalid_transition"
	codeIdempotencyConflict  = "idempotency_conflict"
	codeProductNameRequired  = "product_name_required"
	codeInvalidPrice         = "invalid_price"
	codeInvalidStock         = "invalid_stock"
	codeUnauthenticated      = "unauthenticated"
	codeForbidden            = "forbidden"
	codeUnavailable          = "unavailable"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

var errorKinds = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrUnauthenticated, http.StatusUnauthorized, codeUnauthenticated},
	{domain.ErrForbidden, http.StatusForbidden, codeForbidden},
	{domain.ErrOrderNotFound, http.StatusNotFound, codeOrderNotFound},
	{domain.ErrProductNotFound, http.StatusNotFound, codeProductNotFound},
	{domain.ErrInsufficientStock, http.StatusBadRequest, codeInsufficientStock},
	{domain.ErrEmptyOrder, http.StatusBadRequest, codeEmptyOrder},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, codeInvalidQuantity},
	{domain.ErrAddressRequired, http.StatusBadRequest, codeAddressRequired},
	{domain.ErrInvalidPaymentMethod, http.StatusBadRequest, codeInvalidPaymentMethod},
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrInvalidStatus, http.StatusBadRequest, codeInvalidStatus},
	{domain.ErrInvalidCommand, http.StatusBadRequest, codeInvalidStatusUpdate},
	{domain.ErrProductNameRequired, http.StatusBadRequest, codeProductNameRequired},
	{domain.ErrInvalidPrice, http.StatusBadRequest, codeInvalidPrice},
	{domain.ErrInvalidStock, http.StatusBadRequest, codeInvalidStock},
	{domain.ErrInvalidTransition, http.StatusConflict, codeInvalidTransition},
	{domain.ErrIdempotencyConflict, http.StatusConflict, codeIdempotencyConflict},
}

// writeServiceError renders a service error. Anything that is not a known
// domain error is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.target) {
			writeError(w, kind.status, kind.code, err.Error())
			return
		}
	}

	logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
