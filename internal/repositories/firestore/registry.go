package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/omnicart/api/internal/platform/firestore"
	"github.com/omnicart/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract and owns the shared client lifecycle.
type Registry struct {
	provider *pfirestore.Provider

	orders         *OrderRepository
	products       *ProductRepository
	cancelRequests *CancelRequestRepository
	notifications  *NotificationRepository
	counters       *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the full Firestore repository set on a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build order repository: %w", err)
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build product repository: %w", err)
	}
	cancelRequests, err := NewCancelRequestRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build cancel request repository: %w", err)
	}
	notifications, err := NewNotificationRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build notification repository: %w", err)
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build counter repository: %w", err)
	}

	return &Registry{
		provider:       provider,
		orders:         orders,
		products:       products,
		cancelRequests: cancelRequests,
		notifications:  notifications,
		counters:       counters,
	}, nil
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Products returns the product repository.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// CancelRequests returns the cancel request repository.
func (r *Registry) CancelRequests() repositories.CancelRequestRepository { return r.cancelRequests }

// Notifications returns the notification repository.
func (r *Registry) Notifications() repositories.NotificationRepository { return r.notifications }

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// RunInTx groups repository calls into one logical unit of work. Document
// level atomicity (stock checks, version checks, single resolution) is
// enforced inside the individual repository transactions, so grouping here is
// sequential composition rather than a cross-document ACID boundary.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	return fn(ctx)
}
