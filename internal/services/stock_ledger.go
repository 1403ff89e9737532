package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/repositories"
)

var (
	// ErrStockInvalidInput signals the caller provided invalid ledger input.
	ErrStockInvalidInput = errors.New("stock: invalid input")
	// ErrProductNotFound indicates the product projection could not be located.
	ErrProductNotFound = errors.New("stock: product not found")
	// ErrInsufficientStock indicates the requested quantity exceeds the available stock.
	ErrInsufficientStock = errors.New("stock: insufficient stock")
)

// StockLedgerDeps bundles collaborators required to construct the stock ledger.
type StockLedgerDeps struct {
	Products          repositories.ProductRepository
	Notifier          NotificationDispatcher
	LowStockThreshold int64
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

type stockLedger struct {
	products  repositories.ProductRepository
	notifier  NotificationDispatcher
	threshold int64
	logger    func(context.Context, string, map[string]any)
}

// NewStockLedger wires dependencies into a concrete StockLedger implementation.
func NewStockLedger(deps StockLedgerDeps) (StockLedger, error) {
	if deps.Products == nil {
		return nil, errors.New("stock ledger: product repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &stockLedger{
		products:  deps.Products,
		notifier:  deps.Notifier,
		threshold: deps.LowStockThreshold,
		logger:    logger,
	}, nil
}

func (l *stockLedger) Decrement(ctx context.Context, productID string, quantity int64) (StockAdjustment, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return StockAdjustment{}, fmt.Errorf("%w: product id is required", ErrStockInvalidInput)
	}
	if quantity <= 0 {
		return StockAdjustment{}, fmt.Errorf("%w: quantity must be positive", ErrStockInvalidInput)
	}

	product, err := l.products.DecrementStock(ctx, productID, quantity)
	if err != nil {
		return StockAdjustment{}, l.mapRepositoryError(productID, err)
	}

	adjustment := StockAdjustment{
		ProductID: product.ID,
		VendorID:  product.VendorID,
		Stock:     product.Stock,
	}
	l.checkLowStock(ctx, product)
	return adjustment, nil
}

func (l *stockLedger) Restore(ctx context.Context, productID string, quantity int64) (StockAdjustment, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return StockAdjustment{}, fmt.Errorf("%w: product id is required", ErrStockInvalidInput)
	}
	if quantity <= 0 {
		return StockAdjustment{}, fmt.Errorf("%w: quantity must be positive", ErrStockInvalidInput)
	}

	product, err := l.products.RestoreStock(ctx, productID, quantity)
	if err != nil {
		return StockAdjustment{}, l.mapRepositoryError(productID, err)
	}

	adjustment := StockAdjustment{
		ProductID: product.ID,
		VendorID:  product.VendorID,
		Stock:     product.Stock,
	}
	l.checkLowStock(ctx, product)
	return adjustment, nil
}

func (l *stockLedger) ListLowStock(ctx context.Context, vendorID string, pagination domain.Pagination) (domain.CursorPage[Product], error) {
	page, err := l.products.ListLowStock(ctx, repositories.LowStockFilter{
		VendorID:   strings.TrimSpace(vendorID),
		Threshold:  l.threshold,
		Pagination: pagination,
	})
	if err != nil {
		return domain.CursorPage[Product]{}, l.mapRepositoryError("", err)
	}
	return page, nil
}

// checkLowStock raises a best-effort vendor notification when the level sits
// at or below the threshold. Failures never affect the ledger mutation.
func (l *stockLedger) checkLowStock(ctx context.Context, product Product) {
	if l.notifier == nil || product.Stock > l.threshold {
		return
	}
	if product.VendorID == "" {
		l.logger(ctx, "stock.low.vendor.missing", map[string]any{
			"product": product.ID,
			"stock":   product.Stock,
		})
		return
	}
	l.notifier.NotifyUser(ctx, product.VendorID,
		"Low stock",
		fmt.Sprintf("Product %s is down to %d units", product.ID, product.Stock),
	)
}

func (l *stockLedger) mapRepositoryError(productID string, err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %s", ErrInsufficientStock, productID)
		case repoErr.IsUnavailable():
			return fmt.Errorf("stock: repository unavailable: %w", err)
		}
	}

	return err
}
