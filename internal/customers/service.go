package customers

import (
	"context"
	"fmt"
)

// Service handles customer business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new customer.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	customer := Customer{
		Name:                req.Name,
		Email:               req.Email,
		Phone:               req.Phone,
		Street:              req.Street,
		PostalCode:          req.PostalCode,
		City:                req.City,
		PersonalNumber:      req.PersonalNumber,
		PropertyDesignation: req.PropertyDesignation,
	}
	id, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Update patches an existing customer.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Email != nil {
		existing.Email = req.Email
	}
	if req.Phone != nil {
		existing.Phone = req.Phone
	}
	if req.Street != nil {
		existing.Street = req.Street
	}
	if req.PostalCode != nil {
		existing.PostalCode = req.PostalCode
	}
	if req.City != nil {
		existing.City = req.City
	}
	if req.PersonalNumber != nil {
		existing.PersonalNumber = req.PersonalNumber
	}
	if req.PropertyDesignation != nil {
		existing.PropertyDesignation = req.PropertyDesignation
	}

	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers matching the filter.
func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}
