package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/platform/auth"
	"github.com/omnicart/api/internal/services"
)

func TestCSRHandlersListCancelRequests(t *testing.T) {
	now := time.Date(2025, 7, 2, 15, 0, 0, 0, time.UTC)
	var captured services.CancelRequestListFilter
	cancellations := &stubCancellationService{
		listFn: func(_ context.Context, _ services.Actor, filter services.CancelRequestListFilter) ([]services.CancelRequest, error) {
			captured = filter
			return []services.CancelRequest{{
				ID:            "creq_1",
				OrderID:       "ord_1",
				Status:        domain.CancelRequestPending,
				RequestedDate: now,
			}}, nil
		},
	}
	handler := NewCSRHandlers(nil, &stubOrderService{}, cancellations)
	router := chi.NewRouter()
	router.Route("/csr", handler.Routes)

	req := authedRequest(http.MethodGet, "/csr/cancel-requests?status=pending&limit=5", nil, "csr-1", auth.RoleCSR)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(captured.Status) != 1 || captured.Status[0] != domain.CancelRequestPending {
		t.Fatalf("unexpected status filter %+v", captured.Status)
	}
	if captured.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", captured.Limit)
	}

	var resp cancelRequestListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "creq_1" {
		t.Fatalf("unexpected items %#v", resp.Items)
	}
}

func TestCSRHandlersProcessCancelRequestApprove(t *testing.T) {
	var captured services.ProcessCancellationCommand
	cancellations := &stubCancellationService{
		processFn: func(_ context.Context, cmd services.ProcessCancellationCommand) (services.CancelRequest, error) {
			captured = cmd
			return services.CancelRequest{ID: cmd.RequestID, Status: domain.CancelRequestApproved}, nil
		},
	}
	handler := NewCSRHandlers(nil, &stubOrderService{}, cancellations)
	router := chi.NewRouter()
	router.Route("/csr", handler.Routes)

	body := []byte(`{"approve":true}`)
	req := authedRequest(http.MethodPost, "/csr/cancel-requests/creq_1", body, "csr-1", auth.RoleCSR)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.RequestID != "creq_1" || !captured.Approve {
		t.Fatalf("unexpected command %+v", captured)
	}
}

func TestCSRHandlersProcessCancelRequestAlreadyProcessed(t *testing.T) {
	cancellations := &stubCancellationService{
		processFn: func(context.Context, services.ProcessCancellationCommand) (services.CancelRequest, error) {
			return services.CancelRequest{}, services.ErrAlreadyProcessed
		},
	}
	handler := NewCSRHandlers(nil, &stubOrderService{}, cancellations)
	router := chi.NewRouter()
	router.Route("/csr", handler.Routes)

	body := []byte(`{"approve":false}`)
	req := authedRequest(http.MethodPost, "/csr/cancel-requests/creq_1", body, "csr-1", auth.RoleCSR)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["error"] != "already_processed" {
		t.Fatalf("expected already_processed code, got %v", resp["error"])
	}
}

func TestCSRHandlersCancelOrderWithoutBody(t *testing.T) {
	var captured services.CancelOrderCommand
	service := &stubOrderService{
		cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: domain.OrderStatusCancelled}, nil
		},
	}
	handler := NewCSRHandlers(nil, service, &stubCancellationService{})
	router := chi.NewRouter()
	router.Route("/csr", handler.Routes)

	req := authedRequest(http.MethodPost, "/csr/orders/ord_1/cancel", nil, "csr-1", auth.RoleCSR)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.Reason != "" {
		t.Fatalf("unexpected command %+v", captured)
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Order.Status != "cancelled" {
		t.Fatalf("unexpected status %s", resp.Order.Status)
	}
}
