package workorders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/shared"
	"github.com/FIXCOse/fixco-platform/internal/staff"
)

type mockRepository struct {
	orders map[int64]*WorkOrder
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{orders: make(map[int64]*WorkOrder)}
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*WorkOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, req ListWorkOrdersRequest) ([]WorkOrder, int, error) {
	var out []WorkOrder
	for _, o := range m.orders {
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		if req.AssignedTo != nil && (o.AssignedTo == nil || *o.AssignedTo != *req.AssignedTo) {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *mockRepository) Create(ctx context.Context, order WorkOrder) (int64, error) {
	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	m.orders[order.ID] = &order
	return order.ID, nil
}

func (m *mockRepository) Claim(ctx context.Context, id, workerID int64, at time.Time) error {
	o, ok := m.orders[id]
	if !ok || o.Status != StatusOpen || o.Mode != ModePool {
		return httpx.ErrInvalidState
	}
	o.Status = StatusAssigned
	o.AssignedTo = &workerID
	o.AssignedAt = &at
	return nil
}

func (m *mockRepository) Offer(ctx context.Context, id, workerID int64, at time.Time) error {
	o, ok := m.orders[id]
	if !ok || o.Status != StatusOpen || o.Mode != ModeRequest {
		return httpx.ErrInvalidState
	}
	o.Status = StatusOffered
	o.OfferedTo = &workerID
	o.OfferedAt = &at
	return nil
}

func (m *mockRepository) AcceptOffer(ctx context.Context, id, workerID int64, at time.Time) error {
	o, ok := m.orders[id]
	if !ok || o.Status != StatusOffered || o.OfferedTo == nil || *o.OfferedTo != workerID {
		return httpx.ErrInvalidState
	}
	o.Status = StatusAssigned
	o.AssignedTo = &workerID
	o.AssignedAt = &at
	o.OfferedTo = nil
	return nil
}

func (m *mockRepository) DeclineOffer(ctx context.Context, id, workerID int64) error {
	o, ok := m.orders[id]
	if !ok || o.Status != StatusOffered || o.OfferedTo == nil || *o.OfferedTo != workerID {
		return httpx.ErrInvalidState
	}
	o.Status = StatusOpen
	o.OfferedTo = nil
	o.OfferedAt = nil
	return nil
}

func (m *mockRepository) Start(ctx context.Context, id, workerID int64, at time.Time) error {
	o, ok := m.orders[id]
	if !ok || o.Status != StatusAssigned || o.AssignedTo == nil || *o.AssignedTo != workerID {
		return httpx.ErrInvalidState
	}
	o.Status = StatusInProgress
	o.StartedAt = &at
	return nil
}

func (m *mockRepository) Complete(ctx context.Context, id, workerID int64, at time.Time) error {
	o, ok := m.orders[id]
	if !ok || o.Status != StatusInProgress || o.AssignedTo == nil || *o.AssignedTo != workerID {
		return httpx.ErrInvalidState
	}
	o.Status = StatusCompleted
	o.CompletedAt = &at
	return nil
}

func (m *mockRepository) Cancel(ctx context.Context, id int64, at time.Time) error {
	o, ok := m.orders[id]
	if !ok || o.Status.Terminal() {
		return httpx.ErrInvalidState
	}
	o.Status = StatusCancelled
	o.CancelledAt = &at
	return nil
}

type mockCustomerRepo struct{}

func (m *mockCustomerRepo) Get(ctx context.Context, id int64) (*customers.Customer, error) {
	if id != 1 {
		return nil, httpx.ErrNotFound
	}
	return &customers.Customer{ID: 1, Name: "Anna Andersson"}, nil
}

func (m *mockCustomerRepo) List(ctx context.Context, req customers.ListCustomersRequest) ([]customers.Customer, int, error) {
	return nil, 0, nil
}

func (m *mockCustomerRepo) Create(ctx context.Context, c customers.Customer) (int64, error) {
	return 0, nil
}

func (m *mockCustomerRepo) Update(ctx context.Context, c customers.Customer) error { return nil }

type mockStaffRepo struct {
	members map[int64]*staff.Staff
}

func (m *mockStaffRepo) Get(ctx context.Context, id int64) (*staff.Staff, error) {
	member, ok := m.members[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return member, nil
}

func (m *mockStaffRepo) GetByEmail(ctx context.Context, email string) (*staff.Staff, error) {
	return nil, httpx.ErrNotFound
}

func (m *mockStaffRepo) List(ctx context.Context, req staff.ListStaffRequest) ([]staff.Staff, int, error) {
	return nil, 0, nil
}

func (m *mockStaffRepo) Create(ctx context.Context, member staff.Staff) (int64, error) {
	return 0, nil
}

func (m *mockStaffRepo) SetActive(ctx context.Context, id int64, active bool) error { return nil }

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	staffRepo := &mockStaffRepo{members: map[int64]*staff.Staff{
		10: {ID: 10, Name: "Bo Berg", Role: staff.RoleWorker, Active: true},
		11: {ID: 11, Name: "Eva Ek", Role: staff.RoleWorker, Active: true},
		12: {ID: 12, Name: "Ulf Ung", Role: staff.RoleWorker, Active: false},
	}}
	return NewService(repo, &mockCustomerRepo{}, staffRepo), repo
}

func worker(id int64) shared.StaffIdentity {
	return shared.StaffIdentity{ID: id, Role: "worker"}
}

func TestPoolClaimFlow(t *testing.T) {
	svc, _ := newTestService()
	order, err := svc.Create(context.Background(), CreateWorkOrderRequest{
		CustomerID: 1, Title: "Hemstädning", Mode: ModePool,
	}, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, order.Status)

	claimed, err := svc.Claim(context.Background(), order.ID, worker(10))
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, claimed.Status)
	require.NotNil(t, claimed.AssignedTo)
	assert.Equal(t, int64(10), *claimed.AssignedTo)

	// The losing claimer gets a conflict, not a reassignment.
	_, err = svc.Claim(context.Background(), order.ID, worker(11))
	assert.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestDirectOrderStartsAssigned(t *testing.T) {
	svc, _ := newTestService()
	assignee := int64(10)
	order, err := svc.Create(context.Background(), CreateWorkOrderRequest{
		CustomerID: 1, Title: "Fönsterputs", Mode: ModeDirect, AssignedTo: &assignee,
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, StatusAssigned, order.Status)
	assert.NotNil(t, order.AssignedAt)
}

func TestDirectOrderRequiresWorker(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateWorkOrderRequest{
		CustomerID: 1, Title: "Fönsterputs", Mode: ModeDirect,
	}, 2)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDirectOrderRejectsInactiveWorker(t *testing.T) {
	svc, _ := newTestService()
	assignee := int64(12)
	_, err := svc.Create(context.Background(), CreateWorkOrderRequest{
		CustomerID: 1, Title: "Fönsterputs", Mode: ModeDirect, AssignedTo: &assignee,
	}, 2)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestOfferAcceptFlow(t *testing.T) {
	svc, _ := newTestService()
	order, err := svc.Create(context.Background(), CreateWorkOrderRequest{
		CustomerID: 1, Title: "Trädgårdsarbete", Mode: ModeRequest,
	}, 2)
	require.NoError(t, err)

	offered, err := svc.Offer(context.Background(), order.ID, OfferRequest{WorkerID: 10})
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, offered.Status)

	// Another worker cannot accept someone else's offer.
	_, err = svc.Accept(context.Background(), order.ID, worker(11))
	assert.ErrorIs(t, err, httpx.ErrInvalidState)

	accepted, err := svc.Accept(context.Background(), order.ID, worker(10))
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, accepted.Status)
	assert.Nil(t, accepted.OfferedTo)
}

func TestDeclineReturnsOrderToPool(t *testing.T) {
	svc, _ := newTestService()
	order, err := svc.Create(context.Background(), CreateWorkOrderRequest{
		CustomerID: 1, Title: "Trädgårdsarbete", Mode: ModeRequest,
	}, 2)
	require.NoError(t, err)

	_, err = svc.Offer(context.Background(), order.ID, OfferRequest{WorkerID: 10})
	require.NoError(t, err)

	declined, err := svc.Decline(context.Background(), order.ID, worker(10))
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, declined.Status)
	assert.Nil(t, declined.OfferedTo)

	// The order can be re-offered to someone else.
	_, err = svc.Offer(context.Background(), order.ID, OfferRequest{WorkerID: 11})
	assert.NoError(t, err)
}

func TestStartCompleteFlow(t *testing.T) {
	svc, _ := newTestService()
	assignee := int64(10)
	order, err := svc.Create(context.Background(), CreateWorkOrderRequest{
		CustomerID: 1, Title: "Golvläggning", Mode: ModeDirect, AssignedTo: &assignee,
	}, 2)
	require.NoError(t, err)

	// Only the assignee may start.
	_, err = svc.Start(context.Background(), order.ID, worker(11))
	assert.ErrorIs(t, err, httpx.ErrInvalidState)

	started, err := svc.Start(context.Background(), order.ID, worker(10))
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)

	completed, err := svc.Complete(context.Background(), order.ID, worker(10))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	// Terminal states cannot be cancelled.
	_, err = svc.Cancel(context.Background(), order.ID)
	assert.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestCancelNonTerminal(t *testing.T) {
	svc, _ := newTestService()
	order, err := svc.Create(context.Background(), CreateWorkOrderRequest{
		CustomerID: 1, Title: "Hemstädning", Mode: ModePool,
	}, 2)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Claim(context.Background(), order.ID, worker(10))
	assert.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestTransitionOnMissingOrderIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Claim(context.Background(), 999, worker(10))
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
