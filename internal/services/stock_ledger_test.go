package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/repositories"
)

type stubRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e stubRepoError) Error() string { return "stub repository error" }

func (e stubRepoError) IsNotFound() bool { return e.notFound }

func (e stubRepoError) IsConflict() bool { return e.conflict }

func (e stubRepoError) IsUnavailable() bool { return e.unavailable }

type stubProductRepo struct {
	findFn      func(ctx context.Context, productID string) (domain.Product, error)
	decrementFn func(ctx context.Context, productID string, quantity int64) (domain.Product, error)
	restoreFn   func(ctx context.Context, productID string, quantity int64) (domain.Product, error)
	lowStockFn  func(ctx context.Context, filter repositories.LowStockFilter) (domain.CursorPage[domain.Product], error)
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFn != nil {
		return s.findFn(ctx, productID)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepo) DecrementStock(ctx context.Context, productID string, quantity int64) (domain.Product, error) {
	if s.decrementFn != nil {
		return s.decrementFn(ctx, productID, quantity)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepo) RestoreStock(ctx context.Context, productID string, quantity int64) (domain.Product, error) {
	if s.restoreFn != nil {
		return s.restoreFn(ctx, productID, quantity)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepo) ListLowStock(ctx context.Context, filter repositories.LowStockFilter) (domain.CursorPage[domain.Product], error) {
	if s.lowStockFn != nil {
		return s.lowStockFn(ctx, filter)
	}
	return domain.CursorPage[domain.Product]{}, nil
}

type capturedNotice struct {
	userID  string
	role    string
	title   string
	message string
}

type captureNotifier struct {
	notices []capturedNotice
}

func (c *captureNotifier) NotifyUser(_ context.Context, userID, title, message string) {
	c.notices = append(c.notices, capturedNotice{userID: userID, title: title, message: message})
}

func (c *captureNotifier) NotifyRole(_ context.Context, role, title, message string) {
	c.notices = append(c.notices, capturedNotice{role: role, title: title, message: message})
}

func TestStockLedgerDecrementValidatesInput(t *testing.T) {
	ledger, err := NewStockLedger(StockLedgerDeps{Products: &stubProductRepo{}})
	if err != nil {
		t.Fatalf("new stock ledger: %v", err)
	}

	if _, err := ledger.Decrement(context.Background(), "", 1); !errors.Is(err, ErrStockInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if _, err := ledger.Decrement(context.Background(), "prod-1", 0); !errors.Is(err, ErrStockInvalidInput) {
		t.Fatalf("expected invalid input error for zero quantity, got %v", err)
	}
	if _, err := ledger.Restore(context.Background(), "prod-1", -2); !errors.Is(err, ErrStockInvalidInput) {
		t.Fatalf("expected invalid input error for negative quantity, got %v", err)
	}
}

func TestStockLedgerDecrementMapsConflictToInsufficientStock(t *testing.T) {
	repo := &stubProductRepo{
		decrementFn: func(_ context.Context, _ string, _ int64) (domain.Product, error) {
			return domain.Product{}, fmt.Errorf("firestore products.decrement: %w", stubRepoError{conflict: true})
		},
	}
	ledger, err := NewStockLedger(StockLedgerDeps{Products: repo})
	if err != nil {
		t.Fatalf("new stock ledger: %v", err)
	}

	_, err = ledger.Decrement(context.Background(), "prod-1", 6)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
}

func TestStockLedgerDecrementMapsMissingProduct(t *testing.T) {
	repo := &stubProductRepo{
		decrementFn: func(_ context.Context, _ string, _ int64) (domain.Product, error) {
			return domain.Product{}, stubRepoError{notFound: true}
		},
	}
	ledger, err := NewStockLedger(StockLedgerDeps{Products: repo})
	if err != nil {
		t.Fatalf("new stock ledger: %v", err)
	}

	_, err = ledger.Decrement(context.Background(), "prod-missing", 1)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found error, got %v", err)
	}
}

func TestStockLedgerDecrementNotifiesVendorAtThreshold(t *testing.T) {
	repo := &stubProductRepo{
		decrementFn: func(_ context.Context, productID string, quantity int64) (domain.Product, error) {
			if productID != "prod-1" || quantity != 3 {
				t.Fatalf("unexpected decrement %s %d", productID, quantity)
			}
			return domain.Product{ID: "prod-1", VendorID: "vendor-1", Stock: 4}, nil
		},
	}
	notifier := &captureNotifier{}
	ledger, err := NewStockLedger(StockLedgerDeps{
		Products:          repo,
		Notifier:          notifier,
		LowStockThreshold: 5,
	})
	if err != nil {
		t.Fatalf("new stock ledger: %v", err)
	}

	adjustment, err := ledger.Decrement(context.Background(), "prod-1", 3)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if adjustment.Stock != 4 {
		t.Fatalf("expected stock 4, got %d", adjustment.Stock)
	}
	if len(notifier.notices) != 1 {
		t.Fatalf("expected single low stock notice, got %d", len(notifier.notices))
	}
	notice := notifier.notices[0]
	if notice.userID != "vendor-1" || notice.title != "Low stock" {
		t.Fatalf("unexpected notice %+v", notice)
	}
}

func TestStockLedgerDecrementSkipsNotifyAboveThreshold(t *testing.T) {
	repo := &stubProductRepo{
		decrementFn: func(_ context.Context, _ string, _ int64) (domain.Product, error) {
			return domain.Product{ID: "prod-1", VendorID: "vendor-1", Stock: 40}, nil
		},
	}
	notifier := &captureNotifier{}
	ledger, err := NewStockLedger(StockLedgerDeps{
		Products:          repo,
		Notifier:          notifier,
		LowStockThreshold: 5,
	})
	if err != nil {
		t.Fatalf("new stock ledger: %v", err)
	}

	if _, err := ledger.Decrement(context.Background(), "prod-1", 1); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if len(notifier.notices) != 0 {
		t.Fatalf("expected no notices, got %d", len(notifier.notices))
	}
}

func TestStockLedgerRestoreAddsBack(t *testing.T) {
	repo := &stubProductRepo{
		restoreFn: func(_ context.Context, productID string, quantity int64) (domain.Product, error) {
			if productID != "prod-1" || quantity != 2 {
				t.Fatalf("unexpected restore %s %d", productID, quantity)
			}
			return domain.Product{ID: "prod-1", VendorID: "vendor-1", Stock: 7}, nil
		},
	}
	ledger, err := NewStockLedger(StockLedgerDeps{Products: repo, LowStockThreshold: 5})
	if err != nil {
		t.Fatalf("new stock ledger: %v", err)
	}

	adjustment, err := ledger.Restore(context.Background(), "prod-1", 2)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if adjustment.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", adjustment.Stock)
	}
}

func TestStockLedgerListLowStockAppliesThreshold(t *testing.T) {
	repo := &stubProductRepo{
		lowStockFn: func(_ context.Context, filter repositories.LowStockFilter) (domain.CursorPage[domain.Product], error) {
			if filter.VendorID != "vendor-1" {
				t.Fatalf("unexpected vendor %s", filter.VendorID)
			}
			if filter.Threshold != 10 {
				t.Fatalf("expected threshold 10, got %d", filter.Threshold)
			}
			return domain.CursorPage[domain.Product]{
				Items: []domain.Product{{ID: "prod-1", Stock: 3}},
			}, nil
		},
	}
	ledger, err := NewStockLedger(StockLedgerDeps{Products: repo, LowStockThreshold: 10})
	if err != nil {
		t.Fatalf("new stock ledger: %v", err)
	}

	page, err := ledger.ListLowStock(context.Background(), "vendor-1", domain.Pagination{PageSize: 20})
	if err != nil {
		t.Fatalf("list low stock: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "prod-1" {
		t.Fatalf("unexpected page %+v", page)
	}
}
