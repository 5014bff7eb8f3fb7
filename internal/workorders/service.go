package workorders

import (
	"context"
	"fmt"
	"time"

	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/shared"
	"github.com/FIXCOse/fixco-platform/internal/staff"
)

// Service handles work order business logic.
type Service struct {
	repo         Repository
	customerRepo customers.Repository
	staffRepo    staff.Repository
}

// NewService builds a Service instance.
func NewService(repo Repository, customerRepo customers.Repository, staffRepo staff.Repository) *Service {
	return &Service{repo: repo, customerRepo: customerRepo, staffRepo: staffRepo}
}

// Create opens a new work order. Direct mode requires a target worker and
// starts assigned; pool and request orders start open.
func (s *Service) Create(ctx context.Context, req CreateWorkOrderRequest, createdBy int64) (*WorkOrder, error) {
	if _, err := s.customerRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}

	order := WorkOrder{
		CustomerID:    req.CustomerID,
		QuoteID:       req.QuoteID,
		Title:         req.Title,
		Description:   req.Description,
		Address:       req.Address,
		Mode:          req.Mode,
		Status:        StatusOpen,
		ScheduledDate: req.ScheduledDate,
		CreatedBy:     createdBy,
	}

	switch req.Mode {
	case ModeDirect:
		if req.AssignedTo == nil {
			return nil, fmt.Errorf("%w: direct orders require assigned_to", httpx.ErrValidation)
		}
		if err := s.verifyWorker(ctx, *req.AssignedTo); err != nil {
			return nil, err
		}
		now := time.Now()
		order.Status = StatusAssigned
		order.AssignedTo = req.AssignedTo
		order.AssignedAt = &now
	case ModePool, ModeRequest:
		if req.AssignedTo != nil {
			return nil, fmt.Errorf("%w: only direct orders may be created pre-assigned", httpx.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: mode must be pool, direct or request", httpx.ErrValidation)
	}

	id, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create work order: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Claim lets the calling worker take an open pool order. The single-row
// guard in the repository decides races between concurrent claimers.
func (s *Service) Claim(ctx context.Context, id int64, ident shared.StaffIdentity) (*WorkOrder, error) {
	if err := s.repo.Claim(ctx, id, ident.ID, time.Now()); err != nil {
		return nil, s.transitionError(ctx, id, err, "claim")
	}
	return s.repo.Get(ctx, id)
}

// Offer targets a worker with an open request-mode order.
func (s *Service) Offer(ctx context.Context, id int64, req OfferRequest) (*WorkOrder, error) {
	if err := s.verifyWorker(ctx, req.WorkerID); err != nil {
		return nil, err
	}
	if err := s.repo.Offer(ctx, id, req.WorkerID, time.Now()); err != nil {
		return nil, s.transitionError(ctx, id, err, "offer")
	}
	return s.repo.Get(ctx, id)
}

// Accept lets the offered worker take the order.
func (s *Service) Accept(ctx context.Context, id int64, ident shared.StaffIdentity) (*WorkOrder, error) {
	if err := s.repo.AcceptOffer(ctx, id, ident.ID, time.Now()); err != nil {
		return nil, s.transitionError(ctx, id, err, "accept")
	}
	return s.repo.Get(ctx, id)
}

// Decline returns an offered order to the open state.
func (s *Service) Decline(ctx context.Context, id int64, ident shared.StaffIdentity) (*WorkOrder, error) {
	if err := s.repo.DeclineOffer(ctx, id, ident.ID); err != nil {
		return nil, s.transitionError(ctx, id, err, "decline")
	}
	return s.repo.Get(ctx, id)
}

// Start moves an assigned order to in_progress. Only the assignee may start.
func (s *Service) Start(ctx context.Context, id int64, ident shared.StaffIdentity) (*WorkOrder, error) {
	if err := s.repo.Start(ctx, id, ident.ID, time.Now()); err != nil {
		return nil, s.transitionError(ctx, id, err, "start")
	}
	return s.repo.Get(ctx, id)
}

// Complete finishes an in-progress order. Only the assignee may complete.
func (s *Service) Complete(ctx context.Context, id int64, ident shared.StaffIdentity) (*WorkOrder, error) {
	if err := s.repo.Complete(ctx, id, ident.ID, time.Now()); err != nil {
		return nil, s.transitionError(ctx, id, err, "complete")
	}
	return s.repo.Get(ctx, id)
}

// Cancel aborts any non-terminal order.
func (s *Service) Cancel(ctx context.Context, id int64) (*WorkOrder, error) {
	if err := s.repo.Cancel(ctx, id, time.Now()); err != nil {
		return nil, s.transitionError(ctx, id, err, "cancel")
	}
	return s.repo.Get(ctx, id)
}

// Get returns one work order.
func (s *Service) Get(ctx context.Context, id int64) (*WorkOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns work orders matching the filter.
func (s *Service) List(ctx context.Context, req ListWorkOrdersRequest) ([]WorkOrder, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) verifyWorker(ctx context.Context, workerID int64) error {
	member, err := s.staffRepo.Get(ctx, workerID)
	if err != nil {
		return fmt.Errorf("verify worker: %w", err)
	}
	if !member.Active {
		return fmt.Errorf("%w: worker account is deactivated", httpx.ErrValidation)
	}
	return nil
}

// transitionError distinguishes a missing order from a guard rejection so the
// client gets 404 rather than 409 for unknown ids.
func (s *Service) transitionError(ctx context.Context, id int64, err error, action string) error {
	if _, getErr := s.repo.Get(ctx, id); getErr != nil {
		return getErr
	}
	return fmt.Errorf("%w: cannot %s this order in its current state", err, action)
}
