package domain

import "fmt"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// happyPath lists the forward progression; cancelled sits outside it.
var happyPath = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

func AllOrderStatuses() []OrderStatus {
	return append(append([]OrderStatus{}, happyPath...), OrderStatusCancelled)
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return status, nil
}

func (s OrderStatus) IsValid() bool {
	return s == OrderStatusCancelled || s.rank() >= 0
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) rank() int {
	for i, st := range happyPath {
		if st == s {
			return i
		}
	}
	return -1
}

// TransitionPolicy decides whether administrators may skip happy-path steps.
type TransitionPolicy string

const (
	// TransitionPolicyPermissive allows any forward jump, e.g. pending -> preparing.
	TransitionPolicyPermissive TransitionPolicy = "permissive"
	// TransitionPolicySequential allows only the next happy-path step.
	TransitionPolicySequential TransitionPolicy = "sequential"
)

func ParseTransitionPolicy(s string) (TransitionPolicy, error) {
	switch p := TransitionPolicy(s); p {
	case TransitionPolicyPermissive, TransitionPolicySequential:
		return p, nil
	case "":
		return TransitionPolicyPermissive, nil
	default:
		return "", fmt.Errorf("unknown transition policy %q", s)
	}
}

// CheckTransition returns an *IllegalTransitionError when from -> to is not allowed under policy.
// Terminal statuses never move, not even to themselves.
func CheckTransition(from, to OrderStatus, policy TransitionPolicy) error {
	if from.IsTerminal() {
		return &IllegalTransitionError{From: from, To: to, Reason: "order is in a terminal state"}
	}
	if !to.IsValid() {
		return &IllegalTransitionError{From: from, To: to, Reason: "unknown status"}
	}
	if to == OrderStatusCancelled {
		return nil
	}

	step := to.rank() - from.rank()
	switch {
	case step <= 0:
		return &IllegalTransitionError{From: from, To: to, Reason: "status can only move forward"}
	case step > 1 && policy == TransitionPolicySequential:
		return &IllegalTransitionError{From: from, To: to, Reason: "intermediate statuses cannot be skipped"}
	}
	return nil
}

func CanTransitionTo(from, to OrderStatus, policy TransitionPolicy) bool {
	return CheckTransition(from, to, policy) == nil
}
