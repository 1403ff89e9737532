package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/omnicart/api/internal/domain"
	pfirestore "github.com/omnicart/api/internal/platform/firestore"
	"github.com/omnicart/api/internal/repositories"
)

const ordersCollection = "orders"

type orderDocument struct {
	OrderNumber     string              `firestore:"orderNumber"`
	CustomerID      string              `firestore:"customerId"`
	Status          string              `firestore:"status"`
	PaymentStatus   string              `firestore:"paymentStatus"`
	Items           []orderItemDocument `firestore:"items"`
	TotalAmount     int64               `firestore:"totalAmount"`
	ShippingAddress string              `firestore:"shippingAddress"`
	ShippingFee     int64               `firestore:"shippingFee"`
	Note            string              `firestore:"note,omitempty"`
	OrderDate       time.Time           `firestore:"orderDate"`
	CancelReason    string              `firestore:"cancelReason,omitempty"`
	CancelledAt     *time.Time          `firestore:"cancelledAt,omitempty"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
	Version         int64               `firestore:"version"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	VendorID  string `firestore:"vendorId"`
	Quantity  int64  `firestore:"qty"`
	UnitPrice int64  `firestore:"unitPrice"`
	Status    string `firestore:"status"`
}

// OrderRepository implements repositories.OrderRepository backed by Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{provider: provider, orders: base}, nil
}

// Insert creates the order document, failing when the id already exists.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order insert: id is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.orders.DocumentRef(ctx, order.ID)
		if err != nil {
			return err
		}
		return tx.Create(ref, newOrderDocument(order))
	})
	if err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update rewrites the order document inside a transaction, enforcing the
// optimistic version check: the stored document must still carry the version
// the caller read (order.Version - 1) or the write aborts with a conflict.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return domain.Order{}, errors.New("order update: id is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.orders.DocumentRef(ctx, order.ID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var stored orderDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("decode order %s: %w", order.ID, err)
		}
		if stored.Version != order.Version-1 {
			return status.Errorf(codes.Aborted, "order %s version moved: have %d want %d", order.ID, stored.Version, order.Version-1)
		}
		return tx.Set(ref, newOrderDocument(order))
	})
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.update", err)
	}
	return order, nil
}

// Delete removes the order document permanently.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return errors.New("order delete: id is required")
	}

	ref, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("orders.delete", err)
	}
	return nil
}

// FindByID loads a single order by document id.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order find: id is required")
	}

	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns orders matching the filter, newest first. Vendor filtering uses
// the denormalised vendorIds field written alongside the items.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if r == nil || r.orders == nil {
		return nil, errors.New("order repository not initialised")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		if customerID := strings.TrimSpace(filter.CustomerID); customerID != "" {
			q = q.Where("customerId", "==", customerID)
		}
		if vendorID := strings.TrimSpace(filter.VendorID); vendorID != "" {
			q = q.Where("vendorIds", "array-contains", vendorID)
		}
		if len(filter.Status) > 0 {
			statuses := make([]string, 0, len(filter.Status))
			for _, s := range filter.Status {
				statuses = append(statuses, string(s))
			}
			q = q.Where("status", "in", statuses)
		}
		return q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}
	return orders, nil
}

func newOrderDocument(order domain.Order) map[string]any {
	items := make([]orderItemDocument, len(order.Items))
	vendorIDs := make([]string, 0, len(order.Items))
	seen := make(map[string]struct{}, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemDocument{
			ProductID: strings.TrimSpace(item.ProductID),
			VendorID:  strings.TrimSpace(item.VendorID),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Status:    string(item.Status),
		}
		vendorID := strings.TrimSpace(item.VendorID)
		if vendorID == "" {
			continue
		}
		if _, ok := seen[vendorID]; ok {
			continue
		}
		seen[vendorID] = struct{}{}
		vendorIDs = append(vendorIDs, vendorID)
	}

	return map[string]any{
		"orderNumber":     strings.TrimSpace(order.OrderNumber),
		"customerId":      strings.TrimSpace(order.CustomerID),
		"status":          string(order.Status),
		"paymentStatus":   string(order.PaymentStatus),
		"items":           items,
		"vendorIds":       vendorIDs,
		"totalAmount":     order.ItemsTotal(),
		"shippingAddress": order.ShippingAddress,
		"shippingFee":     order.ShippingFee,
		"note":            order.Note,
		"orderDate":       order.OrderDate.UTC(),
		"cancelReason":    order.CancelReason,
		"cancelledAt":     order.CancelledAt,
		"createdAt":       order.CreatedAt.UTC(),
		"updatedAt":       order.UpdatedAt.UTC(),
		"version":         order.Version,
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Status:    domain.OrderStatus(item.Status),
		}
	}
	return domain.Order{
		ID:              id,
		OrderNumber:     d.OrderNumber,
		CustomerID:      d.CustomerID,
		Status:          domain.OrderStatus(d.Status),
		PaymentStatus:   domain.PaymentStatus(d.PaymentStatus),
		Items:           items,
		TotalAmount:     d.TotalAmount,
		ShippingAddress: d.ShippingAddress,
		ShippingFee:     d.ShippingFee,
		Note:            d.Note,
		OrderDate:       d.OrderDate,
		CancelReason:    d.CancelReason,
		CancelledAt:     d.CancelledAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		Version:         d.Version,
	}
}
