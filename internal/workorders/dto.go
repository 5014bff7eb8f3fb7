package workorders

import "time"

// CreateWorkOrderRequest opens a new work order. Direct mode requires
// AssignedTo and starts in assigned state; the other modes start open.
type CreateWorkOrderRequest struct {
	CustomerID    int64      `json:"customer_id" validate:"required,gt=0"`
	QuoteID       *int64     `json:"quote_id,omitempty"`
	Title         string     `json:"title" validate:"required,max=200"`
	Description   *string    `json:"description,omitempty"`
	Address       *string    `json:"address,omitempty"`
	Mode          Mode       `json:"mode" validate:"required,oneof=pool direct request"`
	AssignedTo    *int64     `json:"assigned_to,omitempty"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
}

// OfferRequest targets a worker in request mode.
type OfferRequest struct {
	WorkerID int64 `json:"worker_id" validate:"required,gt=0"`
}

// ListWorkOrdersRequest filters the work order listing.
type ListWorkOrdersRequest struct {
	Status     *Status    `json:"status,omitempty"`
	Mode       *Mode      `json:"mode,omitempty"`
	CustomerID *int64     `json:"customer_id,omitempty"`
	AssignedTo *int64     `json:"assigned_to,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}
