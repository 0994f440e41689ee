package models

import "fmt"

// OrderStatus is the lifecycle state of an Order. It is always stored and
// serialized by symbolic name, never by ordinal.
type OrderStatus string

const (
	StatusStarted   OrderStatus = "STARTED"
	StatusPacking   OrderStatus = "PACKING"
	StatusShipping  OrderStatus = "SHIPPING"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusReturned  OrderStatus = "RETURNED"
)

// ParseOrderStatus converts a symbolic name into an OrderStatus. It fails with
// a ValidationError for anything outside the six known statuses.
func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(value)
	if !status.IsValid() {
		return "", NewValidationError(fmt.Sprintf("invalid Order: unknown status '%s'", value), nil)
	}
	return status, nil
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusStarted, StatusPacking, StatusShipping, StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// Cancel transitions to CANCELLED. Orders that have already been delivered or
// returned cannot be cancelled. Re-cancelling a cancelled order succeeds so a
// retried request does not fail merely because it already landed.
func (s OrderStatus) Cancel() (OrderStatus, error) {
	if s == StatusDelivered || s == StatusReturned {
		return "", &ConflictError{Message: "Orders that have been delivered cannot be cancelled"}
	}
	return StatusCancelled, nil
}

// Pack transitions to PACKING. Only STARTED orders can begin packing; packing
// an order already in PACKING is a no-op success.
func (s OrderStatus) Pack() (OrderStatus, error) {
	if s != StatusStarted && s != StatusPacking {
		return "", &ConflictError{Message: fmt.Sprintf("Orders that have been %s cannot be set to PACKING", s)}
	}
	return StatusPacking, nil
}

// Ship transitions to SHIPPING. Cancelled and delivered orders cannot ship.
func (s OrderStatus) Ship() (OrderStatus, error) {
	if s == StatusCancelled || s == StatusDelivered {
		return "", &ConflictError{Message: fmt.Sprintf("Orders that have been %s cannot be shipped", s)}
	}
	return StatusShipping, nil
}

// Deliver transitions to DELIVERED. Only orders in SHIPPING can be delivered;
// delivering a delivered order is a no-op success.
func (s OrderStatus) Deliver() (OrderStatus, error) {
	if s != StatusShipping && s != StatusDelivered {
		return "", &ConflictError{Message: fmt.Sprintf("Orders in %s cannot be delivered", s)}
	}
	return StatusDelivered, nil
}
