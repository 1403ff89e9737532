package domain

import "time"

// CancelRequestStatus enumerates the approval states of a cancellation request.
type CancelRequestStatus string

const (
	// CancelRequestPending indicates the request awaits a CSR decision.
	CancelRequestPending CancelRequestStatus = "pending"
	// CancelRequestApproved indicates the request was approved and the order cancelled.
	CancelRequestApproved CancelRequestStatus = "approved"
	// CancelRequestRejected indicates the request was declined.
	CancelRequestRejected CancelRequestStatus = "rejected"
)

// CancelRequest is a customer-initiated cancellation awaiting CSR resolution.
// Once approved or rejected it is terminal.
type CancelRequest struct {
	ID            string
	OrderID       string
	CustomerID    string
	Reason        string
	Status        CancelRequestStatus
	RequestedDate time.Time
	ResolvedAt    *time.Time
	ResolvedBy    string
}

// IsResolved reports whether the request has reached a terminal state.
func (r CancelRequest) IsResolved() bool {
	return r.Status != CancelRequestPending
}
