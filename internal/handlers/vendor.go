package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/platform/auth"
	"github.com/omnicart/api/internal/platform/httpx"
	"github.com/omnicart/api/internal/services"
)

const maxVendorBodySize = 16 * 1024

// VendorHandlers exposes vendor-facing fulfilment and stock endpoints.
type VendorHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
	stock  services.StockLedger
}

// NewVendorHandlers constructs a new VendorHandlers instance.
func NewVendorHandlers(authn *auth.Authenticator, orders services.OrderService, stock services.StockLedger) *VendorHandlers {
	return &VendorHandlers{
		authn:  authn,
		orders: orders,
		stock:  stock,
	}
}

// Routes registers the /vendor endpoints.
func (h *VendorHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleVendor, auth.RoleAdmin))
	}
	r.Get("/orders", h.listOrders)
	r.Patch("/orders/{orderID}/items/{productID}", h.updateItemStatus)
	r.Get("/products/low-stock", h.listLowStock)
}

type updateItemStatusRequest struct {
	Status string `json:"status"`
}

func (h *VendorHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
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

func (h *VendorHandlers) updateItemStatus(w http.ResponseWriter, r *http.Request) {
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
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if orderID == "" || productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id and product id are required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxVendorBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateItemStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	status, ok := domain.ParseOrderStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateOrderItemStatus(ctx, services.UpdateItemStatusCommand{
		Actor:        actor,
		OrderID:      orderID,
		ProductID:    productID,
		TargetStatus: status,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *VendorHandlers) listLowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stock == nil {
		httpx.WriteError(ctx, w, httpx.NewError("stock_service_unavailable", "stock service unavailable", http.StatusServiceUnavailable))
		return
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}

	query := r.URL.Query()
	pagination := domain.Pagination{
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		size, err := parsePositiveInt(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
			return
		}
		pagination.PageSize = size
	}

	page, err := h.stock.ListLowStock(ctx, actor.UserID, pagination)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]lowStockPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, lowStockPayload{
			ID:       product.ID,
			VendorID: product.VendorID,
			Name:     product.Name,
			Price:    product.Price,
			Stock:    product.Stock,
		})
	}
	writeJSONResponse(w, http.StatusOK, lowStockListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

type lowStockListResponse struct {
	Items         []lowStockPayload `json:"items"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type lowStockPayload struct {
	ID       string `json:"id"`
	VendorID string `json:"vendor_id"`
	Name     string `json:"name,omitempty"`
	Price    int64  `json:"price"`
	Stock    int64  `json:"stock"`
}
