package orders

import (
	"fmt"
	"time"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusPending      Status = "PENDING"
	StatusConfirmed    Status = "CONFIRMED"
	StatusInProduction Status = "IN_PRODUCTION"
	StatusReady        Status = "READY"
	StatusShipped      Status = "SHIPPED"
	StatusDelivered    Status = "DELIVERED"
	StatusCompleted    Status = "COMPLETED"
	StatusCancelled    Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:        {StatusPending, StatusCancelled},
	StatusPending:      {StatusConfirmed, StatusCancelled},
	StatusConfirmed:    {StatusInProduction},
	StatusInProduction: {StatusReady},
	StatusReady:        {StatusShipped, StatusCompleted},
	StatusShipped:      {StatusDelivered},
}

// revenueStatuses are the states counted as booked revenue.
var revenueStatuses = []Status{StatusConfirmed, StatusInProduction, StatusReady, StatusCompleted}

func (s Status) Valid() bool {
	if _, ok := transitions[s]; ok {
		return true
	}
	switch s {
	case StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Repriceable reports whether prices may still change: nothing is confirmed yet.
func (s Status) Repriceable() bool {
	return s == StatusDraft || s == StatusPending
}

// stamp records the milestone timestamp for to. Timestamps are set once.
func stamp(o *Order, to Status, now time.Time) {
	set := func(p **time.Time) {
		if *p == nil {
			t := now
			*p = &t
		}
	}
	switch to {
	case StatusConfirmed:
		set(&o.ConfirmedAt)
	case StatusReady:
		set(&o.ProducedAt)
	case StatusCompleted:
		set(&o.CompletedAt)
	}
	o.Status = to
	o.UpdatedAt = now
}
