package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/platform/auth"
	"github.com/omnicart/api/internal/services"
)

type stubStockLedger struct {
	decrementFn func(context.Context, string, int64) (services.StockAdjustment, error)
	restoreFn   func(context.Context, string, int64) (services.StockAdjustment, error)
	lowStockFn  func(context.Context, string, domain.Pagination) (domain.CursorPage[services.Product], error)
}

func (s *stubStockLedger) Decrement(ctx context.Context, productID string, quantity int64) (services.StockAdjustment, error) {
	if s.decrementFn != nil {
		return s.decrementFn(ctx, productID, quantity)
	}
	return services.StockAdjustment{}, errors.New("not implemented")
}

func (s *stubStockLedger) Restore(ctx context.Context, productID string, quantity int64) (services.StockAdjustment, error) {
	if s.restoreFn != nil {
		return s.restoreFn(ctx, productID, quantity)
	}
	return services.StockAdjustment{}, errors.New("not implemented")
}

func (s *stubStockLedger) ListLowStock(ctx context.Context, vendorID string, pagination domain.Pagination) (domain.CursorPage[services.Product], error) {
	if s.lowStockFn != nil {
		return s.lowStockFn(ctx, vendorID, pagination)
	}
	return domain.CursorPage[services.Product]{}, nil
}

func TestVendorHandlersUpdateItemStatus(t *testing.T) {
	var captured services.UpdateItemStatusCommand
	service := &stubOrderService{
		itemStatusFn: func(_ context.Context, cmd services.UpdateItemStatusCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: domain.OrderStatusPartiallyDelivered}, nil
		},
	}
	handler := NewVendorHandlers(nil, service, &stubStockLedger{})
	router := chi.NewRouter()
	router.Route("/vendor", handler.Routes)

	body := []byte(`{"status":"delivered"}`)
	req := authedRequest(http.MethodPatch, "/vendor/orders/ord_1/items/prod-1", body, "vendor-1", auth.RoleVendor)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.ProductID != "prod-1" {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.TargetStatus != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered target, got %s", captured.TargetStatus)
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Order.Status != "partially_delivered" {
		t.Fatalf("unexpected aggregate status %s", resp.Order.Status)
	}
}

func TestVendorHandlersUpdateItemStatusRejectsUnknownStatus(t *testing.T) {
	handler := NewVendorHandlers(nil, &stubOrderService{}, &stubStockLedger{})
	router := chi.NewRouter()
	router.Route("/vendor", handler.Routes)

	body := []byte(`{"status":"teleported"}`)
	req := authedRequest(http.MethodPatch, "/vendor/orders/ord_1/items/prod-1", body, "vendor-1", auth.RoleVendor)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestVendorHandlersListLowStock(t *testing.T) {
	var capturedVendor string
	var capturedPage domain.Pagination
	ledger := &stubStockLedger{
		lowStockFn: func(_ context.Context, vendorID string, pagination domain.Pagination) (domain.CursorPage[services.Product], error) {
			capturedVendor = vendorID
			capturedPage = pagination
			return domain.CursorPage[services.Product]{
				Items:         []services.Product{{ID: "prod-1", VendorID: vendorID, Price: 1000, Stock: 2}},
				NextPageToken: "tok-next",
			}, nil
		},
	}
	handler := NewVendorHandlers(nil, &stubOrderService{}, ledger)
	router := chi.NewRouter()
	router.Route("/vendor", handler.Routes)

	req := authedRequest(http.MethodGet, "/vendor/products/low-stock?page_size=10&page_token=tok123", nil, "vendor-1", auth.RoleVendor)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedVendor != "vendor-1" {
		t.Fatalf("expected vendor scope vendor-1, got %s", capturedVendor)
	}
	if capturedPage.PageSize != 10 || capturedPage.PageToken != "tok123" {
		t.Fatalf("unexpected pagination %+v", capturedPage)
	}

	var resp lowStockListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Stock != 2 {
		t.Fatalf("unexpected items %#v", resp.Items)
	}
	if resp.NextPageToken != "tok-next" {
		t.Fatalf("expected next page token tok-next, got %s", resp.NextPageToken)
	}
}
