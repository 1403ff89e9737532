package services

import (
	"context"
	"time"

	domain "github.com/omnicart/api/internal/domain"
)

// Domain aliases keep service signatures terse while the canonical types live
// in the domain package.
type (
	// Order aliases domain.Order.
	Order = domain.Order
	// OrderItem aliases domain.OrderItem.
	OrderItem = domain.OrderItem
	// OrderStatus aliases domain.OrderStatus.
	OrderStatus = domain.OrderStatus
	// PaymentStatus aliases domain.PaymentStatus.
	PaymentStatus = domain.PaymentStatus
	// CancelRequest aliases domain.CancelRequest.
	CancelRequest = domain.CancelRequest
	// Product aliases domain.Product.
	Product = domain.Product
	// Notification aliases domain.Notification.
	Notification = domain.Notification
)

// Actor identifies the authenticated caller for ownership and role checks.
type Actor struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the actor carries any of the given roles.
func (a Actor) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}

// NewOrderItem is a requested line at order creation or update time.
type NewOrderItem struct {
	ProductID string
	Quantity  int64
}

// CreateOrderCommand creates an order from requested lines. Price and vendor
// snapshots are read from the catalog projection at execution time.
type CreateOrderCommand struct {
	Actor           Actor
	CustomerID      string
	Items           []NewOrderItem
	ShippingAddress string
	ShippingFee     int64
	Note            string

	// MarkPaid is set by the checkout purchase path, which confirms payment
	// before the order is created.
	MarkPaid bool
}

// UpdateOrderCommand mutates items or descriptive fields while the order is editable.
type UpdateOrderCommand struct {
	Actor           Actor
	OrderID         string
	Items           []NewOrderItem
	ShippingAddress *string
	Note            *string
}

// TransitionOrderCommand moves the order along the fulfilment state machine.
type TransitionOrderCommand struct {
	Actor        Actor
	OrderID      string
	TargetStatus OrderStatus
	Note         string
}

// UpdateItemStatusCommand updates the fulfilment status of one vendor's line.
type UpdateItemStatusCommand struct {
	Actor        Actor
	OrderID      string
	ProductID    string
	TargetStatus OrderStatus
}

// CancelOrderCommand is the direct staff-authority cancellation path.
type CancelOrderCommand struct {
	Actor   Actor
	OrderID string
	Reason  string
}

// UpdatePaymentStatusCommand moves the independent payment axis.
type UpdatePaymentStatusCommand struct {
	Actor         Actor
	OrderID       string
	PaymentStatus PaymentStatus
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	CustomerID string
	VendorID   string
	Status     []OrderStatus
	Limit      int
}

// OrderService orchestrates the order lifecycle: creation, updates, status
// transitions, and the stock adjustments tied to them.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (Order, error)
	UpdateOrderStatus(ctx context.Context, cmd TransitionOrderCommand) (Order, error)
	UpdateOrderItemStatus(ctx context.Context, cmd UpdateItemStatusCommand) (Order, error)
	UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	DeleteOrder(ctx context.Context, actor Actor, orderID string) error
	GetOrder(ctx context.Context, actor Actor, orderID string) (Order, error)
	ListOrders(ctx context.Context, actor Actor, filter OrderListFilter) ([]Order, error)
}

// StockAdjustment reports the stock level after a ledger mutation.
type StockAdjustment struct {
	ProductID string
	VendorID  string
	Stock     int64
}

// StockLedger is the sole mutator of product stock. Both primitives are
// atomic conditional updates; Decrement fails when the requested quantity
// exceeds the available stock and leaves the level untouched.
type StockLedger interface {
	Decrement(ctx context.Context, productID string, quantity int64) (StockAdjustment, error)
	Restore(ctx context.Context, productID string, quantity int64) (StockAdjustment, error)
	ListLowStock(ctx context.Context, vendorID string, pagination domain.Pagination) (domain.CursorPage[Product], error)
}

// RequestCancellationCommand opens a cancellation request on a live order.
type RequestCancellationCommand struct {
	Actor   Actor
	OrderID string
	Reason  string
}

// ProcessCancellationCommand resolves a pending request.
type ProcessCancellationCommand struct {
	Actor     Actor
	RequestID string
	Approve   bool
}

// CancelRequestListFilter narrows cancellation request listings.
type CancelRequestListFilter struct {
	Status []domain.CancelRequestStatus
	Limit  int
}

// CancellationService runs the customer-request / CSR-decision approval flow
// layered over the order state machine.
type CancellationService interface {
	RequestCancellation(ctx context.Context, cmd RequestCancellationCommand) (CancelRequest, error)
	ProcessCancellationRequest(ctx context.Context, cmd ProcessCancellationCommand) (CancelRequest, error)
	ListCancelRequests(ctx context.Context, actor Actor, filter CancelRequestListFilter) ([]CancelRequest, error)
}

// NotificationDispatcher is the fire-and-continue side channel. Dispatch
// failures are logged by implementations and never propagated to callers.
type NotificationDispatcher interface {
	NotifyUser(ctx context.Context, userID, title, message string)
	NotifyRole(ctx context.Context, role, title, message string)
}

// NotificationService exposes the persisted notification inbox.
type NotificationService interface {
	NotificationDispatcher
	ListNotifications(ctx context.Context, actor Actor, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, actor Actor, notificationID string) error
}

// NotificationEvent is the message published to the delivery pipeline.
type NotificationEvent struct {
	NotificationID string    `json:"notificationId"`
	UserID         string    `json:"userId,omitempty"`
	Roles          []string  `json:"roles,omitempty"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// NotificationEventPublisher publishes notification events for downstream delivery.
type NotificationEventPublisher interface {
	PublishNotificationEvent(ctx context.Context, event NotificationEvent) (string, error)
}
