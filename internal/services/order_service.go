package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/platform/auth"
	"github.com/omnicart/api/internal/repositories"
)

const orderIDPrefix = "ord_"

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderItemNotFound indicates no line in the order matches the product.
	ErrOrderItemNotFound = errors.New("order: item not found")
	// ErrForbidden indicates the caller lacks ownership or the required role.
	ErrForbidden = errors.New("order: forbidden")
	// ErrInvalidTransition indicates the requested status change is not allowed
	// from the current state.
	ErrInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderLocked indicates a mutation was attempted on a dispatched or
	// terminal order.
	ErrOrderLocked = errors.New("order: locked")
	// ErrConcurrentModification indicates a lost update was detected on write.
	ErrConcurrentModification = errors.New("order: concurrent modification")
)

// orderStateTransitions is the single transition table every entry point
// consults, regardless of the caller's role.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:            {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing:         {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:            {domain.OrderStatusPartiallyDelivered, domain.OrderStatusDelivered},
	domain.OrderStatusPartiallyDelivered: {domain.OrderStatusDelivered},
}

var cancellableStatuses = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusProcessing,
}

// itemFulfilmentStatuses are the statuses a vendor may set on their own line.
var itemFulfilmentStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPending:    {},
	domain.OrderStatusProcessing: {},
	domain.OrderStatusShipped:    {},
	domain.OrderStatusDelivered:  {},
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Counters    repositories.CounterRepository
	Ledger      StockLedger
	Notifier    NotificationDispatcher
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	products   repositories.ProductRepository
	counters   repositories.CounterRepository
	ledger     StockLedger
	notifier   NotificationDispatcher
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("order service: stock ledger is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:     deps.Orders,
		products:   deps.Products,
		counters:   deps.Counters,
		ledger:     deps.Ledger,
		notifier:   deps.Notifier,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID == "" {
		return Order{}, fmt.Errorf("%w: customer id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	if cmd.Actor.UserID != customerID && !cmd.Actor.HasAnyRole(auth.RoleCSR, auth.RoleAdmin) {
		return Order{}, fmt.Errorf("%w: cannot create orders for another customer", ErrForbidden)
	}

	now := s.now()
	status := domain.OrderStatusPending
	payment := domain.PaymentStatusPending
	if cmd.MarkPaid {
		status = domain.OrderStatusProcessing
		payment = domain.PaymentStatusPaid
	}

	items := make([]domain.OrderItem, 0, len(cmd.Items))
	for _, line := range cmd.Items {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			return Order{}, fmt.Errorf("%w: product id is required", ErrOrderInvalidInput)
		}
		if line.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: quantity for %s must be positive", ErrOrderInvalidInput, productID)
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return Order{}, s.mapProductError(productID, err)
		}

		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			VendorID:  product.VendorID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			Status:    status,
		})
	}

	// Decrement stock line by line; a failure part way through rolls back the
	// decrements already applied so no partial reservation survives.
	decremented, err := s.decrementAll(ctx, items)
	if err != nil {
		s.restoreAll(ctx, decremented)
		return Order{}, err
	}

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		s.restoreAll(ctx, items)
		return Order{}, err
	}

	order := Order{
		ID:              orderIDPrefix + s.newID(),
		OrderNumber:     number,
		CustomerID:      customerID,
		Status:          status,
		PaymentStatus:   payment,
		Items:           items,
		TotalAmount:     0,
		ShippingAddress: strings.TrimSpace(cmd.ShippingAddress),
		ShippingFee:     cmd.ShippingFee,
		Note:            strings.TrimSpace(cmd.Note),
		OrderDate:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	order.TotalAmount = order.ItemsTotal()

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		s.restoreAll(ctx, items)
		return Order{}, err
	}

	return order, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (Order, error) {
	order, err := s.findOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if !strings.EqualFold(order.CustomerID, cmd.Actor.UserID) {
		return Order{}, fmt.Errorf("%w: only the owning customer may update the order", ErrForbidden)
	}
	if !slices.Contains(cancellableStatuses, order.Status) {
		return Order{}, fmt.Errorf("%w: order %s is no longer editable", ErrOrderLocked, order.ID)
	}

	now := s.now()

	if len(cmd.Items) > 0 {
		items, err := s.reconcileItems(ctx, order, cmd.Items)
		if err != nil {
			return Order{}, err
		}
		order.Items = items
	}
	if cmd.ShippingAddress != nil {
		order.ShippingAddress = strings.TrimSpace(*cmd.ShippingAddress)
	}
	if cmd.Note != nil {
		order.Note = strings.TrimSpace(*cmd.Note)
	}

	order.TotalAmount = order.ItemsTotal()
	order.UpdatedAt = now
	order.Version++

	updated, err := s.persist(ctx, order)
	if err != nil {
		return Order{}, err
	}
	return updated, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, cmd TransitionOrderCommand) (Order, error) {
	target := cmd.TargetStatus
	if _, ok := domain.ParseOrderStatus(string(target)); !ok {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, target)
	}

	order, err := s.findOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}

	if target == domain.OrderStatusCancelled {
		return s.cancel(ctx, order, cmd.Note, cmd.Actor)
	}

	now := s.now()
	if err := s.applyStatusTransition(&order, target, now); err != nil {
		return Order{}, err
	}
	if note := strings.TrimSpace(cmd.Note); note != "" {
		order.Note = note
	}

	updated, err := s.persist(ctx, order)
	if err != nil {
		return Order{}, err
	}
	return updated, nil
}

func (s *orderService) UpdateOrderItemStatus(ctx context.Context, cmd UpdateItemStatusCommand) (Order, error) {
	target := cmd.TargetStatus
	if _, ok := itemFulfilmentStatuses[target]; !ok {
		return Order{}, fmt.Errorf("%w: %q is not a valid item status", ErrOrderInvalidInput, target)
	}

	order, err := s.findOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status.IsTerminal() && order.Status != domain.OrderStatusDelivered {
		return Order{}, fmt.Errorf("%w: order %s is cancelled", ErrOrderLocked, order.ID)
	}

	productID := strings.TrimSpace(cmd.ProductID)
	staff := cmd.Actor.HasAnyRole(auth.RoleCSR, auth.RoleAdmin)

	matched := false
	for i := range order.Items {
		if order.Items[i].ProductID != productID {
			continue
		}
		if !staff && !strings.EqualFold(order.Items[i].VendorID, cmd.Actor.UserID) {
			return Order{}, fmt.Errorf("%w: item belongs to another vendor", ErrForbidden)
		}
		order.Items[i].Status = target
		matched = true
	}
	if !matched {
		return Order{}, fmt.Errorf("%w: product %s", ErrOrderItemNotFound, productID)
	}

	now := s.now()
	recomputed := recomputeAggregateStatus(order)
	if recomputed == order.Status {
		// Still persist the item change even when the aggregate is unchanged.
		order.UpdatedAt = now
		order.Version++
		return s.persist(ctx, order)
	}

	if order.Status.IsTerminal() {
		// Terminal aggregates are never downgraded by item-level changes.
		return Order{}, fmt.Errorf("%w: order %s already %s", ErrOrderLocked, order.ID, order.Status)
	}

	order.Status = recomputed
	order.UpdatedAt = now
	order.Version++
	return s.persist(ctx, order)
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (Order, error) {
	if _, ok := domain.ParsePaymentStatus(string(cmd.PaymentStatus)); !ok {
		return Order{}, fmt.Errorf("%w: unknown payment status %q", ErrOrderInvalidInput, cmd.PaymentStatus)
	}

	order, err := s.findOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}

	order.PaymentStatus = cmd.PaymentStatus
	order.UpdatedAt = s.now()
	order.Version++
	return s.persist(ctx, order)
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	order, err := s.findOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	return s.cancel(ctx, order, cmd.Reason, cmd.Actor)
}

func (s *orderService) DeleteOrder(ctx context.Context, actor Actor, orderID string) error {
	if !actor.HasRole(auth.RoleAdmin) {
		return fmt.Errorf("%w: only admins may delete orders", ErrForbidden)
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Delete(txCtx, order.ID); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Undispatched, uncancelled orders still hold reserved stock; deleting
	// them returns it. Cancelled orders already restored theirs.
	if slices.Contains(cancellableStatuses, order.Status) {
		s.restoreAll(ctx, order.Items)
	}
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID string) (Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !s.canReadOrder(actor, order) {
		// Foreign orders are indistinguishable from missing ones.
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor Actor, filter OrderListFilter) ([]Order, error) {
	repoFilter := repositories.OrderListFilter{
		CustomerID: strings.TrimSpace(filter.CustomerID),
		VendorID:   strings.TrimSpace(filter.VendorID),
		Status:     filter.Status,
		Limit:      filter.Limit,
	}

	switch {
	case actor.HasAnyRole(auth.RoleCSR, auth.RoleAdmin):
		// Staff may list across customers and vendors.
	case actor.HasRole(auth.RoleVendor):
		repoFilter.VendorID = actor.UserID
	default:
		repoFilter.CustomerID = actor.UserID
	}

	orders, err := s.orders.List(ctx, repoFilter)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

// cancel is the one path to Cancelled: it validates staff authority and
// cancellability, persists the transition, restores stock for every line,
// and notifies the customer. Customers reach it only through an approved
// cancellation request. Cancelling an already cancelled order is a no-op
// returning the stored order, so a request approval racing a direct staff
// cancel never restores stock twice.
func (s *orderService) cancel(ctx context.Context, order Order, reason string, actor Actor) (Order, error) {
	if !actor.HasAnyRole(auth.RoleCSR, auth.RoleAdmin) {
		return Order{}, fmt.Errorf("%w: only staff may cancel orders", ErrForbidden)
	}
	if order.Status == domain.OrderStatusCancelled {
		return order, nil
	}
	if !slices.Contains(cancellableStatuses, order.Status) {
		if order.Status.IsDispatched() {
			return Order{}, fmt.Errorf("%w: order %s cannot be cancelled after dispatch", ErrOrderLocked, order.ID)
		}
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, domain.OrderStatusCancelled)
	}

	now := s.now()
	order.Status = domain.OrderStatusCancelled
	order.CancelReason = strings.TrimSpace(reason)
	order.CancelledAt = &now
	order.UpdatedAt = now
	order.Version++
	for i := range order.Items {
		order.Items[i].Status = domain.OrderStatusCancelled
	}

	cancelled, err := s.persist(ctx, order)
	if err != nil {
		return Order{}, err
	}

	s.restoreAll(ctx, cancelled.Items)

	if s.notifier != nil {
		message := fmt.Sprintf("Order %s has been cancelled", cancelled.OrderNumber)
		if cancelled.CancelReason != "" {
			message = fmt.Sprintf("%s: %s", message, cancelled.CancelReason)
		}
		s.notifier.NotifyUser(ctx, cancelled.CustomerID, "Order cancelled", message)
	}

	return cancelled, nil
}

// applyStatusTransition enforces the shared transition table and the lock on
// dispatched orders.
func (s *orderService) applyStatusTransition(order *Order, target domain.OrderStatus, now time.Time) error {
	current := order.Status
	if current == target {
		order.UpdatedAt = now
		return nil
	}
	if current.IsTerminal() {
		return fmt.Errorf("%w: order %s already %s", ErrOrderLocked, order.ID, current)
	}

	allowed, ok := orderStateTransitions[current]
	if !ok || !slices.Contains(allowed, target) {
		if current.IsDispatched() {
			return fmt.Errorf("%w: order %s already dispatched", ErrOrderLocked, order.ID)
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}

	if target == domain.OrderStatusDelivered {
		for _, item := range order.Items {
			if item.Status != domain.OrderStatusDelivered {
				return fmt.Errorf("%w: item %s is not delivered yet", ErrInvalidTransition, item.ProductID)
			}
		}
	}

	order.Status = target
	order.UpdatedAt = now
	order.Version++
	return nil
}

// reconcileItems applies the requested lines against the current ones:
// restores run before decrements so shrinking one line can fund growing
// another, and any mid-way failure is compensated before returning.
func (s *orderService) reconcileItems(ctx context.Context, order Order, requested []NewOrderItem) ([]domain.OrderItem, error) {
	current := make(map[string]domain.OrderItem, len(order.Items))
	for _, item := range order.Items {
		current[item.ProductID] = item
	}

	next := make([]domain.OrderItem, 0, len(requested))
	nextQty := make(map[string]int64, len(requested))
	for _, line := range requested {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("%w: product id is required", ErrOrderInvalidInput)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %s must be positive", ErrOrderInvalidInput, productID)
		}
		if _, dup := nextQty[productID]; dup {
			return nil, fmt.Errorf("%w: duplicate line for %s", ErrOrderInvalidInput, productID)
		}
		nextQty[productID] = line.Quantity

		if existing, ok := current[productID]; ok {
			existing.Quantity = line.Quantity
			next = append(next, existing)
			continue
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return nil, s.mapProductError(productID, err)
		}
		next = append(next, domain.OrderItem{
			ProductID: product.ID,
			VendorID:  product.VendorID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			Status:    order.Status,
		})
	}

	type delta struct {
		productID string
		vendorID  string
		amount    int64
	}
	var restores, decrements []delta

	for productID, item := range current {
		newQty := nextQty[productID]
		if newQty < item.Quantity {
			restores = append(restores, delta{productID: productID, vendorID: item.VendorID, amount: item.Quantity - newQty})
		}
	}
	for _, item := range next {
		oldQty := int64(0)
		if existing, ok := current[item.ProductID]; ok {
			oldQty = existing.Quantity
		}
		if item.Quantity > oldQty {
			decrements = append(decrements, delta{productID: item.ProductID, vendorID: item.VendorID, amount: item.Quantity - oldQty})
		}
	}

	var restored, decremented []delta
	undo := func() {
		for _, d := range decremented {
			if _, err := s.ledger.Restore(ctx, d.productID, d.amount); err != nil {
				s.logger(ctx, "order.update.compensation.failed", map[string]any{
					"order":   order.ID,
					"product": d.productID,
					"error":   err.Error(),
				})
			}
		}
		for _, d := range restored {
			if _, err := s.ledger.Decrement(ctx, d.productID, d.amount); err != nil {
				s.logger(ctx, "order.update.compensation.failed", map[string]any{
					"order":   order.ID,
					"product": d.productID,
					"error":   err.Error(),
				})
			}
		}
	}

	for _, d := range restores {
		if _, err := s.ledger.Restore(ctx, d.productID, d.amount); err != nil {
			undo()
			return nil, err
		}
		restored = append(restored, d)
	}
	for _, d := range decrements {
		if _, err := s.ledger.Decrement(ctx, d.productID, d.amount); err != nil {
			undo()
			return nil, err
		}
		decremented = append(decremented, d)
	}

	return next, nil
}

// recomputeAggregateStatus derives the order status from its item statuses.
// The derivation is idempotent: reapplying it yields the same result.
func recomputeAggregateStatus(order Order) domain.OrderStatus {
	if len(order.Items) == 0 {
		return order.Status
	}

	delivered := 0
	for _, item := range order.Items {
		if item.Status == domain.OrderStatusDelivered {
			delivered++
		}
	}

	switch {
	case delivered == len(order.Items):
		return domain.OrderStatusDelivered
	case delivered > 0:
		return domain.OrderStatusPartiallyDelivered
	default:
		return order.Status
	}
}

func (s *orderService) decrementAll(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error) {
	decremented := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if _, err := s.ledger.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
			return decremented, err
		}
		decremented = append(decremented, item)
	}
	return decremented, nil
}

// restoreAll compensates previously applied decrements. Failures are logged
// and skipped; the remaining items are still restored.
func (s *orderService) restoreAll(ctx context.Context, items []domain.OrderItem) {
	for _, item := range items {
		if _, err := s.ledger.Restore(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger(ctx, "order.stock.restore.failed", map[string]any{
				"product": item.ProductID,
				"qty":     item.Quantity,
				"error":   err.Error(),
			})
		}
	}
}

func (s *orderService) canReadOrder(actor Actor, order Order) bool {
	if actor.HasAnyRole(auth.RoleCSR, auth.RoleAdmin) {
		return true
	}
	if strings.EqualFold(order.CustomerID, actor.UserID) {
		return true
	}
	if actor.HasRole(auth.RoleVendor) {
		for _, item := range order.Items {
			if strings.EqualFold(item.VendorID, actor.UserID) {
				return true
			}
		}
	}
	return false
}

func (s *orderService) findOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) persist(ctx context.Context, order Order) (Order, error) {
	var updated Order
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		var updateErr error
		updated, updateErr = s.orders.Update(txCtx, order)
		if updateErr != nil {
			return s.mapRepositoryError(updateErr)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return updated, nil
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) mapProductError(productID string, err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, "orders", 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("OC-%04d-%06d", now.Year(), seq), nil
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
