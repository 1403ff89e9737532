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

const cancelRequestIDPrefix = "creq_"

var (
	// ErrCancelRequestInvalidInput signals the caller provided invalid data.
	ErrCancelRequestInvalidInput = errors.New("cancellation: invalid input")
	// ErrCancelRequestNotFound indicates the request could not be located.
	ErrCancelRequestNotFound = errors.New("cancellation: request not found")
	// ErrAlreadyProcessed indicates the request was already approved or rejected.
	ErrAlreadyProcessed = errors.New("cancellation: request already processed")
	// ErrAlreadyCancelled indicates the order is already cancelled.
	ErrAlreadyCancelled = errors.New("cancellation: order already cancelled")
	// ErrCancellationPending indicates an open request already exists for the order.
	ErrCancellationPending = errors.New("cancellation: request already pending")
)

// CancellationServiceDeps bundles collaborators required to construct the cancellation service.
type CancellationServiceDeps struct {
	Requests    repositories.CancelRequestRepository
	Orders      OrderService
	Notifier    NotificationDispatcher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type cancellationService struct {
	requests repositories.CancelRequestRepository
	orders   OrderService
	notifier NotificationDispatcher
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewCancellationService wires dependencies into a concrete CancellationService implementation.
func NewCancellationService(deps CancellationServiceDeps) (CancellationService, error) {
	if deps.Requests == nil {
		return nil, errors.New("cancellation service: request repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("cancellation service: order service is required")
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

	return &cancellationService{
		requests: deps.Requests,
		orders:   deps.Orders,
		notifier: deps.Notifier,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *cancellationService) RequestCancellation(ctx context.Context, cmd RequestCancellationCommand) (CancelRequest, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return CancelRequest{}, fmt.Errorf("%w: order id is required", ErrCancelRequestInvalidInput)
	}
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return CancelRequest{}, fmt.Errorf("%w: reason is required", ErrCancelRequestInvalidInput)
	}

	order, err := s.orders.GetOrder(ctx, cmd.Actor, orderID)
	if err != nil {
		return CancelRequest{}, err
	}
	if !strings.EqualFold(order.CustomerID, cmd.Actor.UserID) {
		return CancelRequest{}, fmt.Errorf("%w: only the owning customer may request cancellation", ErrForbidden)
	}
	if order.Status == domain.OrderStatusCancelled {
		return CancelRequest{}, fmt.Errorf("%w: %s", ErrAlreadyCancelled, order.ID)
	}
	if !slices.Contains(cancellableStatuses, order.Status) {
		return CancelRequest{}, fmt.Errorf("%w: order %s is already dispatched", ErrOrderLocked, order.ID)
	}

	open, err := s.requests.List(ctx, repositories.CancelRequestListFilter{
		OrderID: order.ID,
		Status:  []domain.CancelRequestStatus{domain.CancelRequestPending},
		Limit:   1,
	})
	if err != nil {
		return CancelRequest{}, s.mapRepositoryError(err)
	}
	if len(open) > 0 {
		return CancelRequest{}, fmt.Errorf("%w: order %s", ErrCancellationPending, order.ID)
	}

	now := s.now()
	request := CancelRequest{
		ID:            cancelRequestIDPrefix + s.newID(),
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Reason:        reason,
		Status:        domain.CancelRequestPending,
		RequestedDate: now,
	}

	if err := s.requests.Insert(ctx, request); err != nil {
		return CancelRequest{}, s.mapRepositoryError(err)
	}

	if s.notifier != nil {
		s.notifier.NotifyRole(ctx, auth.RoleCSR,
			"Cancellation requested",
			fmt.Sprintf("Order %s has a pending cancellation request", order.OrderNumber),
		)
	}

	return request, nil
}

func (s *cancellationService) ProcessCancellationRequest(ctx context.Context, cmd ProcessCancellationCommand) (CancelRequest, error) {
	if !cmd.Actor.HasAnyRole(auth.RoleCSR, auth.RoleAdmin) {
		return CancelRequest{}, fmt.Errorf("%w: only staff may process cancellation requests", ErrForbidden)
	}
	requestID := strings.TrimSpace(cmd.RequestID)
	if requestID == "" {
		return CancelRequest{}, fmt.Errorf("%w: request id is required", ErrCancelRequestInvalidInput)
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return CancelRequest{}, s.mapRepositoryError(err)
	}
	if request.IsResolved() {
		return CancelRequest{}, fmt.Errorf("%w: %s is %s", ErrAlreadyProcessed, request.ID, request.Status)
	}

	now := s.now()
	request.ResolvedAt = &now
	request.ResolvedBy = cmd.Actor.UserID

	if !cmd.Approve {
		request.Status = domain.CancelRequestRejected
		resolved, err := s.requests.Resolve(ctx, request)
		if err != nil {
			return CancelRequest{}, s.mapRepositoryError(err)
		}
		if s.notifier != nil {
			s.notifier.NotifyUser(ctx, resolved.CustomerID,
				"Cancellation request declined",
				fmt.Sprintf("Your cancellation request for order %s was declined", resolved.OrderID),
			)
		}
		return resolved, nil
	}

	// Approval re-validates cancellability through the order state machine:
	// the order may have shipped since the request was filed.
	reason := fmt.Sprintf("Cancelled by CSR, at the customer's request: %s", request.Reason)
	if _, err := s.orders.CancelOrder(ctx, CancelOrderCommand{
		Actor:   cmd.Actor,
		OrderID: request.OrderID,
		Reason:  reason,
	}); err != nil {
		return CancelRequest{}, err
	}

	request.Status = domain.CancelRequestApproved
	resolved, err := s.requests.Resolve(ctx, request)
	if err != nil {
		// The order is cancelled but the request write lost a race; surface
		// the conflict so the caller re-reads the resolved request.
		return CancelRequest{}, s.mapRepositoryError(err)
	}

	if s.notifier != nil {
		s.notifier.NotifyUser(ctx, resolved.CustomerID,
			"Cancellation request approved",
			fmt.Sprintf("Order %s was cancelled: %s", resolved.OrderID, resolved.Reason),
		)
	}

	return resolved, nil
}

func (s *cancellationService) ListCancelRequests(ctx context.Context, actor Actor, filter CancelRequestListFilter) ([]CancelRequest, error) {
	if !actor.HasAnyRole(auth.RoleCSR, auth.RoleAdmin) {
		return nil, fmt.Errorf("%w: only staff may list cancellation requests", ErrForbidden)
	}

	requests, err := s.requests.List(ctx, repositories.CancelRequestListFilter{
		Status: filter.Status,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return requests, nil
}

func (s *cancellationService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCancelRequestNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrAlreadyProcessed, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("cancellation: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *cancellationService) now() time.Time {
	return s.clock()
}
