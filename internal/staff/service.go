package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
)

// ErrInvalidCredentials indicates a failed login attempt. It deliberately
// does not distinguish unknown email from wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service handles staff business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a staff account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, req CreateStaffRequest) (*Staff, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	member := Staff{
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		Role:         req.Role,
		Active:       true,
		PasswordHash: string(hash),
	}

	id, err := s.repo.Create(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Authenticate verifies credentials and returns the account when valid.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Staff, error) {
	member, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || member == nil {
		return nil, ErrInvalidCredentials
	}
	if !member.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return member, nil
}

// Get returns one staff member.
func (s *Service) Get(ctx context.Context, id int64) (*Staff, error) {
	return s.repo.Get(ctx, id)
}

// List returns staff matching the filter.
func (s *Service) List(ctx context.Context, req ListStaffRequest) ([]Staff, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Deactivate disables login and job assignment for an account.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	member, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !member.Active {
		return nil
	}
	return s.repo.SetActive(ctx, id, false)
}
