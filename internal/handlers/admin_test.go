package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/platform/auth"
	"github.com/omnicart/api/internal/services"
)

func TestAdminHandlersUpdateStatus(t *testing.T) {
	var captured services.TransitionOrderCommand
	service := &stubOrderService{
		statusFn: func(_ context.Context, cmd services.TransitionOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: cmd.TargetStatus}, nil
		},
	}
	handler := NewAdminHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	body := []byte(`{"status":"shipped","note":"left the warehouse"}`)
	req := authedRequest(http.MethodPatch, "/admin/orders/ord_1/status", body, "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.TargetStatus != domain.OrderStatusShipped {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.Note != "left the warehouse" {
		t.Fatalf("unexpected note %q", captured.Note)
	}
}

func TestAdminHandlersUpdateStatusInvalidTransition(t *testing.T) {
	service := &stubOrderService{
		statusFn: func(context.Context, services.TransitionOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrInvalidTransition
		},
	}
	handler := NewAdminHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	body := []byte(`{"status":"delivered"}`)
	req := authedRequest(http.MethodPatch, "/admin/orders/ord_1/status", body, "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["error"] != "invalid_transition" {
		t.Fatalf("expected invalid_transition code, got %v", resp["error"])
	}
}

func TestAdminHandlersUpdatePaymentStatus(t *testing.T) {
	var captured services.UpdatePaymentStatusCommand
	service := &stubOrderService{
		paymentStatusFn: func(_ context.Context, cmd services.UpdatePaymentStatusCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, PaymentStatus: cmd.PaymentStatus}, nil
		},
	}
	handler := NewAdminHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	body := []byte(`{"payment_status":"paid"}`)
	req := authedRequest(http.MethodPatch, "/admin/orders/ord_1/payment-status", body, "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("unexpected payment status %s", captured.PaymentStatus)
	}
}

func TestAdminHandlersDeleteOrder(t *testing.T) {
	deleted := ""
	service := &stubOrderService{
		deleteFn: func(_ context.Context, _ services.Actor, orderID string) error {
			deleted = orderID
			return nil
		},
	}
	handler := NewAdminHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	req := authedRequest(http.MethodDelete, "/admin/orders/ord_1", nil, "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if deleted != "ord_1" {
		t.Fatalf("expected delete of ord_1, got %q", deleted)
	}
}

func TestAdminHandlersDeleteOrderForbidden(t *testing.T) {
	service := &stubOrderService{
		deleteFn: func(context.Context, services.Actor, string) error {
			return services.ErrForbidden
		},
	}
	handler := NewAdminHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	req := authedRequest(http.MethodDelete, "/admin/orders/ord_1", nil, "csr-1", auth.RoleCSR)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}
