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

const cancelRequestsCollection = "cancel_requests"

type cancelRequestDocument struct {
	OrderID       string     `firestore:"orderId"`
	CustomerID    string     `firestore:"customerId"`
	Reason        string     `firestore:"reason"`
	Status        string     `firestore:"status"`
	RequestedDate time.Time  `firestore:"requestedDate"`
	ResolvedAt    *time.Time `firestore:"resolvedAt,omitempty"`
	ResolvedBy    string     `firestore:"resolvedBy,omitempty"`
}

// CancelRequestRepository implements repositories.CancelRequestRepository backed by Firestore.
type CancelRequestRepository struct {
	provider *pfirestore.Provider
	requests *pfirestore.BaseRepository[cancelRequestDocument]
}

// NewCancelRequestRepository constructs a Firestore-backed cancel request repository.
func NewCancelRequestRepository(provider *pfirestore.Provider) (*CancelRequestRepository, error) {
	if provider == nil {
		return nil, errors.New("cancel request repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cancelRequestDocument](provider, cancelRequestsCollection, nil, nil)
	return &CancelRequestRepository{provider: provider, requests: base}, nil
}

// Insert creates the cancel request document, failing when the id already exists.
func (r *CancelRequestRepository) Insert(ctx context.Context, request domain.CancelRequest) error {
	if r == nil || r.provider == nil {
		return errors.New("cancel request repository not initialised")
	}
	if strings.TrimSpace(request.ID) == "" {
		return errors.New("cancel request insert: id is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.requests.DocumentRef(ctx, request.ID)
		if err != nil {
			return err
		}
		return tx.Create(ref, newCancelRequestDocument(request))
	})
	if err != nil {
		return pfirestore.WrapError("cancelRequests.insert", err)
	}
	return nil
}

// FindByID loads a single cancel request by document id.
func (r *CancelRequestRepository) FindByID(ctx context.Context, requestID string) (domain.CancelRequest, error) {
	if r == nil || r.requests == nil {
		return domain.CancelRequest{}, errors.New("cancel request repository not initialised")
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.CancelRequest{}, errors.New("cancel request find: id is required")
	}

	doc, err := r.requests.Get(ctx, requestID)
	if err != nil {
		return domain.CancelRequest{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns cancel requests matching the filter, newest first.
func (r *CancelRequestRepository) List(ctx context.Context, filter repositories.CancelRequestListFilter) ([]domain.CancelRequest, error) {
	if r == nil || r.requests == nil {
		return nil, errors.New("cancel request repository not initialised")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	docs, err := r.requests.Query(ctx, func(q firestore.Query) firestore.Query {
		if orderID := strings.TrimSpace(filter.OrderID); orderID != "" {
			q = q.Where("orderId", "==", orderID)
		}
		if len(filter.Status) > 0 {
			statuses := make([]string, 0, len(filter.Status))
			for _, s := range filter.Status {
				statuses = append(statuses, string(s))
			}
			q = q.Where("status", "in", statuses)
		}
		return q.OrderBy("requestedDate", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	requests := make([]domain.CancelRequest, 0, len(docs))
	for _, doc := range docs {
		requests = append(requests, doc.Data.toDomain(doc.ID))
	}
	return requests, nil
}

// Resolve writes the terminal status for a pending request. The stored
// document is re-read in the same transaction; a request that is no longer
// pending aborts with a conflict so a second resolution can never land.
func (r *CancelRequestRepository) Resolve(ctx context.Context, request domain.CancelRequest) (domain.CancelRequest, error) {
	if r == nil || r.provider == nil {
		return domain.CancelRequest{}, errors.New("cancel request repository not initialised")
	}
	if strings.TrimSpace(request.ID) == "" {
		return domain.CancelRequest{}, errors.New("cancel request resolve: id is required")
	}
	if request.Status == domain.CancelRequestPending {
		return domain.CancelRequest{}, errors.New("cancel request resolve: terminal status is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.requests.DocumentRef(ctx, request.ID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var stored cancelRequestDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("decode cancel request %s: %w", request.ID, err)
		}
		if stored.Status != string(domain.CancelRequestPending) {
			return status.Errorf(codes.FailedPrecondition, "cancel request %s already resolved as %s", request.ID, stored.Status)
		}
		return tx.Set(ref, newCancelRequestDocument(request))
	})
	if err != nil {
		return domain.CancelRequest{}, pfirestore.WrapError("cancelRequests.resolve", err)
	}
	return request, nil
}

func newCancelRequestDocument(request domain.CancelRequest) cancelRequestDocument {
	return cancelRequestDocument{
		OrderID:       strings.TrimSpace(request.OrderID),
		CustomerID:    strings.TrimSpace(request.CustomerID),
		Reason:        strings.TrimSpace(request.Reason),
		Status:        string(request.Status),
		RequestedDate: request.RequestedDate.UTC(),
		ResolvedAt:    request.ResolvedAt,
		ResolvedBy:    strings.TrimSpace(request.ResolvedBy),
	}
}

func (d cancelRequestDocument) toDomain(id string) domain.CancelRequest {
	return domain.CancelRequest{
		ID:            id,
		OrderID:       d.OrderID,
		CustomerID:    d.CustomerID,
		Reason:        d.Reason,
		Status:        domain.CancelRequestStatus(d.Status),
		RequestedDate: d.RequestedDate,
		ResolvedAt:    d.ResolvedAt,
		ResolvedBy:    d.ResolvedBy,
	}
}
