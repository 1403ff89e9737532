package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omnicart/api/internal/platform/config"
	"github.com/omnicart/api/internal/repositories"
	"github.com/omnicart/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders        services.OrderService
	Stock         services.StockLedger
	Cancellations services.CancellationService
	Notifications services.NotificationService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerOptions carries optional collaborators injected from main.
type ContainerOptions struct {
	// Publisher forwards persisted notifications to the delivery pipeline.
	// Nil disables publishing; notifications are still stored.
	Publisher services.NotificationEventPublisher
	// Logger receives structured service events. Nil silences them.
	Logger func(ctx context.Context, event string, fields map[string]any)
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore-backed registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ContainerOptions) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(reg, cfg, opts)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, cfg config.Config, opts ContainerOptions) (Services, error) {
	var svc Services

	notificationSvc, err := services.NewNotificationService(services.NotificationServiceDeps{
		Notifications: reg.Notifications(),
		Publisher:     opts.Publisher,
		Clock:         time.Now,
		Logger:        opts.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build notification service: %w", err)
	}
	svc.Notifications = notificationSvc

	stockLedger, err := services.NewStockLedger(services.StockLedgerDeps{
		Products:          reg.Products(),
		Notifier:          notificationSvc,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
		Logger:            opts.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build stock ledger: %w", err)
	}
	svc.Stock = stockLedger

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Products:   reg.Products(),
		Counters:   reg.Counters(),
		Ledger:     stockLedger,
		Notifier:   notificationSvc,
		UnitOfWork: reg,
		Clock:      time.Now,
		Logger:     opts.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	cancellationSvc, err := services.NewCancellationService(services.CancellationServiceDeps{
		Requests: reg.CancelRequests(),
		Orders:   orderSvc,
		Notifier: notificationSvc,
		Clock:    time.Now,
		Logger:   opts.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cancellation service: %w", err)
	}
	svc.Cancellations = cancellationSvc

	return svc, nil
}
