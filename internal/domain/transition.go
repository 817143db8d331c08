package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transition writes the new status, appends exactly one history entry and
// stamps the fulfilment or cancellation fields. It does not check whether
// the move is legal; callers consult a TransitionPolicy first.
func (o *Order) Transition(to OrderStatus, actor uuid.UUID, notes string, at time.Time) StatusEntry {
	entry := StatusEntry{Status: to, Timestamp: at, ActorID: actor, Notes: notes}
	o.Status = to
	o.StatusHistory = append(o.StatusHistory, entry)
	switch {
	case to.IsFulfilled():
		t := at
		o.ActualDeliveryTime = &t
	case to.IsVoided():
		by, t := actor, at
		o.CancelledBy = &by
		o.CancelledAt = &t
	}
	o.UpdatedAt = at
	return entry
}
