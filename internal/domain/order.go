package domain

import "time"

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order has been placed but not yet picked up for fulfilment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates the order is being prepared.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order has been handed to the carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusPartiallyDelivered indicates some but not all items have reached the customer.
	OrderStatusPartiallyDelivered OrderStatus = "partially_delivered"
	// OrderStatusDelivered indicates every item has been delivered.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled before dispatch.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus tracks the payment axis independently of fulfilment progress.
type PaymentStatus string

const (
	// PaymentStatusPending indicates payment has not completed yet.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid indicates the payment gateway confirmed the charge.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed indicates the charge was declined or errored.
	PaymentStatusFailed PaymentStatus = "failed"
)

// Order is the order aggregate: header fields plus embedded line items,
// treated as one consistency boundary.
type Order struct {
	ID              string
	OrderNumber     string
	CustomerID      string
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	Items           []OrderItem
	TotalAmount     int64
	ShippingAddress string
	ShippingFee     int64
	Note            string
	OrderDate       time.Time
	CancelReason    string
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Version guards against lost updates; incremented on every write.
	Version int64
}

// OrderItem is a line item embedded in an order. Prices are captured at order
// time and never follow the live catalog.
type OrderItem struct {
	ProductID string
	VendorID  string
	Quantity  int64
	UnitPrice int64
	Status    OrderStatus
}

// Total returns the line total derived from quantity and the price snapshot.
func (i OrderItem) Total() int64 {
	return i.UnitPrice * i.Quantity
}

// ItemsTotal sums the derived line totals across all items.
func (o Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Total()
	}
	return total
}

// IsTerminal reports whether the order reached a final state.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IsDispatched reports whether the order left the warehouse.
func (s OrderStatus) IsDispatched() bool {
	switch s {
	case OrderStatusShipped, OrderStatusPartiallyDelivered, OrderStatusDelivered:
		return true
	}
	return false
}

// ParseOrderStatus validates a raw status string.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	switch OrderStatus(raw) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusPartiallyDelivered, OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(raw), true
	}
	return "", false
}

// ParsePaymentStatus validates a raw payment status string.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch PaymentStatus(raw) {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return PaymentStatus(raw), true
	}
	return "", false
}
