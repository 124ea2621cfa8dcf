package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=customer
type Repository interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	ListCustomers(ctx context.Context, ownerID uuid.UUID) ([]*Customer, error)
	UpdateCustomer(ctx context.Context, c *Customer) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error

	// PatchBalance updates only the balance column, leaving every other
	// field untouched. Returns ErrNotFound when no live row matched.
	PatchBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	OwnerID         uuid.UUID
	Name            string
	CellphoneNumber string
	Address         *string
	CreditScore     *int
}

// Create registers a new customer. The balance always starts at zero; it
// only ever changes through the recalculation engine.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Customer, error) {
	c := &Customer{
		OwnerID:         params.OwnerID,
		Name:            params.Name,
		CellphoneNumber: params.CellphoneNumber,
		Address:         params.Address,
		Balance:         decimal.Zero,
		CreditScore:     params.CreditScore,
	}

	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*Customer, error) {
	return s.repo.ListCustomers(ctx, ownerID)
}

type UpdateParams struct {
	Name            *string
	CellphoneNumber *string
	Address         *string
	CreditScore     *int
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		c.Name = *params.Name
	}

	if params.CellphoneNumber != nil {
		c.CellphoneNumber = *params.CellphoneNumber
	}

	if params.Address != nil {
		c.Address = params.Address
	}

	if params.CreditScore != nil {
		c.CreditScore = params.CreditScore
	}

	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// Delete soft-deletes a customer. Rows referenced by transactions are never
// removed physically, so historical statements stay reconstructable.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCustomer(ctx, id)
}
