package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/platform/auth"
	"github.com/omnicart/api/internal/platform/httpx"
	"github.com/omnicart/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxOrderBodySize     = 64 * 1024
)

// OrderHandlers exposes customer-facing order endpoints.
type OrderHandlers struct {
	authn         *auth.Authenticator
	orders        services.OrderService
	cancellations services.CancellationService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, cancellations services.CancellationService) *OrderHandlers {
	return &OrderHandlers{
		authn:         authn,
		orders:        orders,
		cancellations: cancellations,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Put("/{orderID}", h.updateOrder)
	r.Post("/{orderID}/cancel-request", h.requestCancellation)
}

// RegisterStandaloneRoutes mounts the checkout purchase endpoint directly
// under the API prefix.
func (h *OrderHandlers) RegisterStandaloneRoutes(r chi.Router) {
	if r == nil {
		return
	}
	purchase := http.HandlerFunc(h.purchase)
	if h.authn != nil {
		r.With(h.authn.RequireFirebaseAuth()).Post("/purchase", purchase)
		return
	}
	r.Post("/purchase", purchase)
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
	ShippingFee     int64              `json:"shipping_fee"`
	Note            string             `json:"note"`
}

type updateOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	ShippingAddress *string            `json:"shipping_address"`
	Note            *string            `json:"note"`
}

type cancelRequestRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, false)
}

// purchase is the checkout path: payment is confirmed upfront so the order is
// created already paid and processing.
func (h *OrderHandlers) purchase(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, true)
}

func (h *OrderHandlers) create(w http.ResponseWriter, r *http.Request, markPaid bool) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	order, err := h.orders.CreateOrder(ctx, services.CreateOrderCommand{
		Actor:           actor,
		CustomerID:      actor.UserID,
		Items:           buildNewOrderItems(req.Items),
		ShippingAddress: req.ShippingAddress,
		ShippingFee:     req.ShippingFee,
		Note:            req.Note,
		MarkPaid:        markPaid,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}

	filter, err := parseOrderListQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	orders, err := h.orders.ListOrders(ctx, actor, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderListResponse(orders))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, actor, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateOrder(ctx, services.UpdateOrderCommand{
		Actor:           actor,
		OrderID:         orderID,
		Items:           buildNewOrderItems(req.Items),
		ShippingAddress: req.ShippingAddress,
		Note:            req.Note,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) requestCancellation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cancellations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cancellation_service_unavailable", "cancellation service unavailable", http.StatusServiceUnavailable))
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req cancelRequestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	request, err := h.cancellations.RequestCancellation(ctx, services.RequestCancellationCommand{
		Actor:   actor,
		OrderID: orderID,
		Reason:  req.Reason,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, cancelRequestResponse{Request: buildCancelRequestPayload(request)})
}

type orderListResponse struct {
	Items []orderPayload `json:"items"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"order_number"`
	CustomerID      string             `json:"customer_id"`
	Status          string             `json:"status"`
	PaymentStatus   string             `json:"payment_status"`
	Items           []orderItemPayload `json:"items"`
	TotalAmount     int64              `json:"total_amount"`
	ShippingAddress string             `json:"shipping_address,omitempty"`
	ShippingFee     int64              `json:"shipping_fee,omitempty"`
	Note            string             `json:"note,omitempty"`
	OrderDate       string             `json:"order_date"`
	CancelReason    string             `json:"cancel_reason,omitempty"`
	CancelledAt     string             `json:"cancelled_at,omitempty"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at,omitempty"`
	Version         int64              `json:"version"`
}

type orderItemPayload struct {
	ProductID string `json:"product_id"`
	VendorID  string `json:"vendor_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Total     int64  `json:"total"`
	Status    string `json:"status"`
}

type cancelRequestResponse struct {
	Request cancelRequestPayload `json:"cancel_request"`
}

type cancelRequestPayload struct {
	ID            string `json:"id"`
	OrderID       string `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	Reason        string `json:"reason,omitempty"`
	Status        string `json:"status"`
	RequestedDate string `json:"requested_date"`
	ResolvedAt    string `json:"resolved_at,omitempty"`
	ResolvedBy    string `json:"resolved_by,omitempty"`
}

func buildNewOrderItems(items []orderItemRequest) []services.NewOrderItem {
	result := make([]services.NewOrderItem, 0, len(items))
	for _, item := range items {
		result = append(result, services.NewOrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
		})
	}
	return result
}

func buildOrderPayload(order services.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total(),
			Status:    string(item.Status),
		})
	}
	return orderPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		Items:           items,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		ShippingFee:     order.ShippingFee,
		Note:            order.Note,
		OrderDate:       formatTime(order.OrderDate),
		CancelReason:    order.CancelReason,
		CancelledAt:     formatTime(pointerTime(order.CancelledAt)),
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
		Version:         order.Version,
	}
}

func buildOrderListResponse(orders []services.Order) orderListResponse {
	items := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildOrderPayload(order))
	}
	return orderListResponse{Items: items}
}

func buildCancelRequestPayload(request services.CancelRequest) cancelRequestPayload {
	return cancelRequestPayload{
		ID:            request.ID,
		OrderID:       request.OrderID,
		CustomerID:    request.CustomerID,
		Reason:        request.Reason,
		Status:        string(request.Status),
		RequestedDate: formatTime(request.RequestedDate),
		ResolvedAt:    formatTime(pointerTime(request.ResolvedAt)),
		ResolvedBy:    request.ResolvedBy,
	}
}

func parseOrderListQuery(r *http.Request) (services.OrderListFilter, error) {
	query := r.URL.Query()

	var statuses []domain.OrderStatus
	for _, raw := range query["status"] {
		for _, value := range strings.Split(raw, ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			status, ok := domain.ParseOrderStatus(value)
			if !ok {
				return services.OrderListFilter{}, errors.New("status must be a valid order status")
			}
			statuses = append(statuses, status)
		}
	}

	limit := defaultOrderPageSize
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return services.OrderListFilter{}, errors.New("limit must be an integer")
		}
		switch {
		case parsed <= 0:
			limit = defaultOrderPageSize
		case parsed > maxOrderPageSize:
			limit = maxOrderPageSize
		default:
			limit = parsed
		}
	}

	return services.OrderListFilter{
		CustomerID: strings.TrimSpace(query.Get("customer_id")),
		VendorID:   strings.TrimSpace(query.Get("vendor_id")),
		Status:     statuses,
		Limit:      limit,
	}, nil
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrStockInvalidInput),
		errors.Is(err, services.ErrCancelRequestInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "caller is not allowed to perform this action", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_item_not_found", "order item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCancelRequestNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cancel_request_not_found", "cancellation request not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderLocked):
		httpx.WriteError(ctx, w, httpx.NewError("order_locked", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrConcurrentModification):
		httpx.WriteError(ctx, w, httpx.NewError("concurrent_modification", "order was modified concurrently, retry", http.StatusConflict))
	case errors.Is(err, services.ErrAlreadyProcessed):
		httpx.WriteError(ctx, w, httpx.NewError("already_processed", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrAlreadyCancelled):
		httpx.WriteError(ctx, w, httpx.NewError("already_cancelled", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCancellationPending):
		httpx.WriteError(ctx, w, httpx.NewError("cancellation_pending", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
