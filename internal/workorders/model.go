// Package workorders manages field job assignment. An order reaches a worker
// in one of three ways: claimed from an open pool, created pre-assigned, or
// offered to a specific worker who accepts or declines.
package workorders

import "time"

// Mode selects how an order is assigned.
type Mode string

const (
	ModePool    Mode = "pool"
	ModeDirect  Mode = "direct"
	ModeRequest Mode = "request"
)

// Status enumerates the work order lifecycle.
type Status string

const (
	StatusOpen       Status = "open"
	StatusOffered    Status = "offered"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// WorkOrder is one field job for a customer.
type WorkOrder struct {
	ID            int64      `json:"id" db:"id"`
	CustomerID    int64      `json:"customer_id" db:"customer_id"`
	QuoteID       *int64     `json:"quote_id,omitempty" db:"quote_id"`
	Title         string     `json:"title" db:"title"`
	Description   *string    `json:"description,omitempty" db:"description"`
	Address       *string    `json:"address,omitempty" db:"address"`
	Mode          Mode       `json:"mode" db:"mode"`
	Status        Status     `json:"status" db:"status"`
	AssignedTo    *int64     `json:"assigned_to,omitempty" db:"assigned_to"`
	OfferedTo     *int64     `json:"offered_to,omitempty" db:"offered_to"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty" db:"scheduled_date"`
	CreatedBy     int64      `json:"created_by" db:"created_by"`
	OfferedAt     *time.Time `json:"offered_at,omitempty" db:"offered_at"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty" db:"assigned_at"`
	StartedAt     *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
