package repositories

import (
	"context"

	domain "github.com/omnicart/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Products() ProductRepository
	CancelRequests() CancelRequestRepository
	Notifications() NotificationRepository
	Counters() CounterRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderListFilter narrows order list queries.
type OrderListFilter struct {
	CustomerID string
	VendorID   string
	Status     []domain.OrderStatus
	Limit      int
}

// OrderRepository persists order aggregates. Update enforces the optimistic
// version check: the stored document must carry Version-1 or the write fails
// with a conflict error.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) (domain.Order, error)
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
}

// LowStockFilter narrows low stock listings to a vendor at a threshold.
type LowStockFilter struct {
	VendorID   string
	Threshold  int64
	Pagination domain.Pagination
}

// ProductRepository reads the stock-relevant product projection and performs
// the two ledger primitives. DecrementStock is a conditional atomic update
// that fails with a conflict error when the available stock is below the
// requested quantity; RestoreStock adds unconditionally.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	DecrementStock(ctx context.Context, productID string, quantity int64) (domain.Product, error)
	RestoreStock(ctx context.Context, productID string, quantity int64) (domain.Product, error)
	ListLowStock(ctx context.Context, filter LowStockFilter) (domain.CursorPage[domain.Product], error)
}

// CancelRequestListFilter narrows cancellation request listings.
type CancelRequestListFilter struct {
	OrderID string
	Status  []domain.CancelRequestStatus
	Limit   int
}

// CancelRequestRepository persists cancellation requests. Resolve writes the
// terminal status atomically and fails with a conflict error when the request
// is no longer pending.
type CancelRequestRepository interface {
	Insert(ctx context.Context, request domain.CancelRequest) error
	FindByID(ctx context.Context, requestID string) (domain.CancelRequest, error)
	List(ctx context.Context, filter CancelRequestListFilter) ([]domain.CancelRequest, error)
	Resolve(ctx context.Context, request domain.CancelRequest) (domain.CancelRequest, error)
}

// NotificationRepository persists user and role addressed notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, notification domain.Notification) error
	FindByID(ctx context.Context, notificationID string) (domain.Notification, error)
	ListForUser(ctx context.Context, userID string, roles []string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
}

// CounterRepository issues monotonically increasing sequence values.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}
