package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/platform/auth"
	"github.com/omnicart/api/internal/platform/httpx"
	"github.com/omnicart/api/internal/services"
)

const maxCSRBodySize = 16 * 1024

// CSRHandlers exposes the customer-service workflow endpoints.
type CSRHandlers struct {
	authn         *auth.Authenticator
	orders        services.OrderService
	cancellations services.CancellationService
}

// NewCSRHandlers constructs a new CSRHandlers instance.
func NewCSRHandlers(authn *auth.Authenticator, orders services.OrderService, cancellations services.CancellationService) *CSRHandlers {
	return &CSRHandlers{
		authn:         authn,
		orders:        orders,
		cancellations: cancellations,
	}
}

// Routes registers the /csr endpoints.
func (h *CSRHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleCSR, auth.RoleAdmin))
	}
	r.Get("/cancel-requests", h.listCancelRequests)
	r.Post("/cancel-requests/{requestID}", h.processCancelRequest)
	r.Post("/orders/{orderID}/cancel", h.cancelOrder)
}

type processCancelRequestRequest struct {
	Approve bool `json:"approve"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *CSRHandlers) listCancelRequests(w http.ResponseWriter, r *http.Request) {
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

	filter, err := parseCancelRequestQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	requests, err := h.cancellations.ListCancelRequests(ctx, actor, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]cancelRequestPayload, 0, len(requests))
	for _, request := range requests {
		items = append(items, buildCancelRequestPayload(request))
	}
	writeJSONResponse(w, http.StatusOK, cancelRequestListResponse{Items: items})
}

func (h *CSRHandlers) processCancelRequest(w http.ResponseWriter, r *http.Request) {
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

	requestID := strings.TrimSpace(chi.URLParam(r, "requestID"))
	if requestID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxCSRBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req processCancelRequestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	request, err := h.cancellations.ProcessCancellationRequest(ctx, services.ProcessCancellationCommand{
		Actor:     actor,
		RequestID: requestID,
		Approve:   req.Approve,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, cancelRequestResponse{Request: buildCancelRequestPayload(request)})
}

func (h *CSRHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
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

	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxCSRBodySize)
	switch {
	case err == nil:
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	case errors.Is(err, errEmptyBody):
		// reason is optional
	default:
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		Actor:   actor,
		OrderID: orderID,
		Reason:  req.Reason,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type cancelRequestListResponse struct {
	Items []cancelRequestPayload `json:"items"`
}

func parseCancelRequestQuery(r *http.Request) (services.CancelRequestListFilter, error) {
	query := r.URL.Query()

	var statuses []domain.CancelRequestStatus
	for _, raw := range query["status"] {
		for _, value := range strings.Split(raw, ",") {
			value = strings.TrimSpace(strings.ToLower(value))
			if value == "" {
				continue
			}
			switch domain.CancelRequestStatus(value) {
			case domain.CancelRequestPending, domain.CancelRequestApproved, domain.CancelRequestRejected:
				statuses = append(statuses, domain.CancelRequestStatus(value))
			default:
				return services.CancelRequestListFilter{}, errors.New("status must be a valid cancel request status")
			}
		}
	}

	limit := defaultOrderPageSize
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			return services.CancelRequestListFilter{}, errors.New("limit must be a positive integer")
		}
		if parsed > maxOrderPageSize {
			parsed = maxOrderPageSize
		}
		limit = parsed
	}

	return services.CancelRequestListFilter{
		Status: statuses,
		Limit:  limit,
	}, nil
}
