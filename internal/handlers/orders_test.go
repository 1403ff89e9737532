package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/platform/auth"
	"github.com/omnicart/api/internal/services"
)

type stubOrderService struct {
	createFn        func(context.Context, services.CreateOrderCommand) (services.Order, error)
	updateFn        func(context.Context, services.UpdateOrderCommand) (services.Order, error)
	statusFn        func(context.Context, services.TransitionOrderCommand) (services.Order, error)
	itemStatusFn    func(context.Context, services.UpdateItemStatusCommand) (services.Order, error)
	paymentStatusFn func(context.Context, services.UpdatePaymentStatusCommand) (services.Order, error)
	cancelFn        func(context.Context, services.CancelOrderCommand) (services.Order, error)
	deleteFn        func(context.Context, services.Actor, string) error
	getFn           func(context.Context, services.Actor, string) (services.Order, error)
	listFn          func(context.Context, services.Actor, services.OrderListFilter) ([]services.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) UpdateOrder(ctx context.Context, cmd services.UpdateOrderCommand) (services.Order, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) UpdateOrderStatus(ctx context.Context, cmd services.TransitionOrderCommand) (services.Order, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) UpdateOrderItemStatus(ctx context.Context, cmd services.UpdateItemStatusCommand) (services.Order, error) {
	if s.itemStatusFn != nil {
		return s.itemStatusFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) UpdatePaymentStatus(ctx context.Context, cmd services.UpdatePaymentStatusCommand) (services.Order, error) {
	if s.paymentStatusFn != nil {
		return s.paymentStatusFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) DeleteOrder(ctx context.Context, actor services.Actor, orderID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, actor, orderID)
	}
	return errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, actor services.Actor, orderID string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, actor, orderID)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(ctx context.Context, actor services.Actor, filter services.OrderListFilter) ([]services.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, actor, filter)
	}
	return nil, nil
}

type stubCancellationService struct {
	requestFn func(context.Context, services.RequestCancellationCommand) (services.CancelRequest, error)
	processFn func(context.Context, services.ProcessCancellationCommand) (services.CancelRequest, error)
	listFn    func(context.Context, services.Actor, services.CancelRequestListFilter) ([]services.CancelRequest, error)
}

func (s *stubCancellationService) RequestCancellation(ctx context.Context, cmd services.RequestCancellationCommand) (services.CancelRequest, error) {
	if s.requestFn != nil {
		return s.requestFn(ctx, cmd)
	}
	return services.CancelRequest{}, errors.New("not implemented")
}

func (s *stubCancellationService) ProcessCancellationRequest(ctx context.Context, cmd services.ProcessCancellationCommand) (services.CancelRequest, error) {
	if s.processFn != nil {
		return s.processFn(ctx, cmd)
	}
	return services.CancelRequest{}, errors.New("not implemented")
}

func (s *stubCancellationService) ListCancelRequests(ctx context.Context, actor services.Actor, filter services.CancelRequestListFilter) ([]services.CancelRequest, error) {
	if s.listFn != nil {
		return s.listFn(ctx, actor, filter)
	}
	return nil, nil
}

func authedRequest(method, target string, body []byte, uid string, roles ...string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: roles}))
}

func TestOrderHandlersCreateOrderSuccess(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	var captured services.CreateOrderCommand
	service := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{
				ID:          "ord_123",
				OrderNumber: "OC-2025-000123",
				CustomerID:  "user-1",
				Status:      domain.OrderStatusPending,
				TotalAmount: 3000,
				CreatedAt:   now,
				Version:     1,
			}, nil
		},
	}
	handler := NewOrderHandlers(nil, service, nil)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)

	body := []byte(`{"items":[{"product_id":"prod-1","quantity":3}],"shipping_address":"1 Main St","shipping_fee":300}`)
	req := authedRequest(http.MethodPost, "/orders", body, "user-1", auth.RoleCustomer)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.CustomerID != "user-1" {
		t.Fatalf("expected customer user-1, got %s", captured.CustomerID)
	}
	if captured.MarkPaid {
		t.Fatalf("plain creation must not mark paid")
	}
	if len(captured.Items) != 1 || captured.Items[0].ProductID != "prod-1" || captured.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items %+v", captured.Items)
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Order.ID != "ord_123" || resp.Order.OrderNumber != "OC-2025-000123" {
		t.Fatalf("unexpected order payload %#v", resp.Order)
	}
}

func TestOrderHandlersPurchaseMarksPaid(t *testing.T) {
	var captured services.CreateOrderCommand
	service := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: "ord_123", Status: domain.OrderStatusProcessing}, nil
		},
	}
	handler := NewOrderHandlers(nil, service, nil)
	router := chi.NewRouter()
	handler.RegisterStandaloneRoutes(router)

	body := []byte(`{"items":[{"product_id":"prod-1","quantity":1}]}`)
	req := authedRequest(http.MethodPost, "/purchase", body, "user-1", auth.RoleCustomer)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !captured.MarkPaid {
		t.Fatalf("purchase must mark the order paid")
	}
}

func TestOrderHandlersCreateOrderInvalidBody(t *testing.T) {
	handler := NewOrderHandlers(nil, &stubOrderService{}, nil)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)

	req := authedRequest(http.MethodPost, "/orders", []byte("{not json"), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersCreateOrderInsufficientStock(t *testing.T) {
	service := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrInsufficientStock
		},
	}
	handler := NewOrderHandlers(nil, service, nil)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)

	body := []byte(`{"items":[{"product_id":"prod-1","quantity":9}]}`)
	req := authedRequest(http.MethodPost, "/orders", body, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["error"] != "insufficient_stock" {
		t.Fatalf("expected insufficient_stock code, got %v", resp["error"])
	}
}

func TestOrderHandlersListOrdersParsesQuery(t *testing.T) {
	var captured services.OrderListFilter
	service := &stubOrderService{
		listFn: func(_ context.Context, _ services.Actor, filter services.OrderListFilter) ([]services.Order, error) {
			captured = filter
			return []services.Order{{ID: "ord_1"}}, nil
		},
	}
	handler := NewOrderHandlers(nil, service, nil)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)

	req := authedRequest(http.MethodGet, "/orders?status=pending,processing&limit=10", nil, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(captured.Status) != 2 {
		t.Fatalf("expected 2 status filters, got %d", len(captured.Status))
	}
	if captured.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", captured.Limit)
	}

	var resp orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "ord_1" {
		t.Fatalf("unexpected items %#v", resp.Items)
	}
}

func TestOrderHandlersListOrdersRejectsUnknownStatus(t *testing.T) {
	handler := NewOrderHandlers(nil, &stubOrderService{}, nil)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)

	req := authedRequest(http.MethodGet, "/orders?status=bogus", nil, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	service := &stubOrderService{
		getFn: func(context.Context, services.Actor, string) (services.Order, error) {
			return services.Order{}, services.ErrOrderNotFound
		},
	}
	handler := NewOrderHandlers(nil, service, nil)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)

	req := authedRequest(http.MethodGet, "/orders/ord_missing", nil, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestOrderHandlersUpdateOrderLockedConflict(t *testing.T) {
	service := &stubOrderService{
		updateFn: func(context.Context, services.UpdateOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderLocked
		},
	}
	handler := NewOrderHandlers(nil, service, nil)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)

	body := []byte(`{"note":"change of plans"}`)
	req := authedRequest(http.MethodPut, "/orders/ord_1", body, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["error"] != "order_locked" {
		t.Fatalf("expected order_locked code, got %v", resp["error"])
	}
}

func TestOrderHandlersRequestCancellation(t *testing.T) {
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	var captured services.RequestCancellationCommand
	cancellations := &stubCancellationService{
		requestFn: func(_ context.Context, cmd services.RequestCancellationCommand) (services.CancelRequest, error) {
			captured = cmd
			return services.CancelRequest{
				ID:            "creq_1",
				OrderID:       cmd.OrderID,
				CustomerID:    "user-1",
				Reason:        cmd.Reason,
				Status:        domain.CancelRequestPending,
				RequestedDate: now,
			}, nil
		},
	}
	handler := NewOrderHandlers(nil, &stubOrderService{}, cancellations)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)

	body := []byte(`{"reason":"ordered by mistake"}`)
	req := authedRequest(http.MethodPost, "/orders/ord_1/cancel-request", body, "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.Reason != "ordered by mistake" {
		t.Fatalf("unexpected command %+v", captured)
	}

	var resp cancelRequestResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Request.ID != "creq_1" || resp.Request.Status != "pending" {
		t.Fatalf("unexpected request payload %#v", resp.Request)
	}
}

func TestOrderHandlersRequireIdentity(t *testing.T) {
	handler := NewOrderHandlers(nil, &stubOrderService{}, nil)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}
