package domain

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
	StatusRejected       OrderStatus = "rejected"
)

var AllStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusOutForDelivery,
	StatusDelivered, StatusCompleted, StatusCancelled, StatusRejected,
}

func (s OrderStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsFulfilled reports delivered or completed.
func (s OrderStatus) IsFulfilled() bool { return s == StatusDelivered || s == StatusCompleted }

// IsVoided reports cancelled or rejected.
func (s OrderStatus) IsVoided() bool { return s == StatusCancelled || s == StatusRejected }

func (s OrderStatus) IsTerminal() bool { return s.IsFulfilled() || s.IsVoided() }

// TransitionPolicy decides whether an order may move between two statuses.
type TransitionPolicy interface {
	Allowed(orderType OrderType, from, to OrderStatus) bool
}

// PermissivePolicy allows any status to be written at any time. It is the
// default so that operators can, for example, re-open a wrongly completed
// order.
type PermissivePolicy struct{}

func (PermissivePolicy) Allowed(OrderType, OrderStatus, OrderStatus) bool { return true }

// StrictPolicy follows the forward lifecycle:
//
//	pending -> confirmed -> preparing -> ready -> out_for_delivery -> delivered   (delivery)
//	                                      ready -> completed                       (dine_in, takeout)
//
// cancelled and rejected are reachable from every non-terminal status.
type StrictPolicy struct{}

var forward = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusConfirmed},
	StatusConfirmed:      {StatusPreparing},
	StatusPreparing:      {StatusReady},
	StatusReady:          {StatusOutForDelivery, StatusCompleted},
	StatusOutForDelivery: {StatusDelivered},
}

func (StrictPolicy) Allowed(orderType OrderType, from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to.IsVoided() {
		return true
	}
	if to == StatusOutForDelivery || to == StatusDelivered {
		if orderType != OrderTypeDelivery {
			return false
		}
	}
	if to == StatusCompleted && orderType == OrderTypeDelivery {
		return false
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}
