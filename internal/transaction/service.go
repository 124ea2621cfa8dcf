package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	// ListForCustomer returns all non-deleted transactions for a customer.
	// An unknown customer id yields an empty slice, not an error.
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*Transaction, error)

	CreateBatch(ctx context.Context, txs []*Transaction) error
}

// Recalculator is notified after every transaction write so customer
// balances can be brought back in line with the stored transaction set.
// Before and After carry the owning customer id on each side of the write:
// nil Before means the transaction was created, nil After means it was
// deleted, and two different ids mean it was reassigned between customers.
type Recalculator interface {
	TransactionWritten(before, after *uuid.UUID)
}

type Service struct {
	repo    Repository
	recalcs Recalculator
}

func NewService(repo Repository, recalcs Recalculator) *Service {
	return &Service{repo: repo, recalcs: recalcs}
}

type CreateParams struct {
	CustomerID uuid.UUID
	Type       Type
	Amount     decimal.Decimal
	Note       *string
	DueBy      *time.Time
	RepaidAt   *time.Time

	// CreatedAt overrides the record timestamp. Used by statement imports
	// to preserve the historical date; nil means "now".
	CreatedAt *time.Time
}

func (p CreateParams) validate() error {
	tx := Transaction{
		Type:     p.Type,
		Amount:   p.Amount,
		DueBy:    p.DueBy,
		RepaidAt: p.RepaidAt,
	}

	return validate(&tx)
}

// validate enforces the write-time invariants: the type is from the closed
// set and the amount is strictly positive. The balance fold relies on this
// so an unknown type can never legitimately reach it.
func validate(tx *Transaction) error {
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, tx.Type)
	}

	if !tx.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrNonPositiveAmount, tx.Amount)
	}

	if tx.Type == TypeRepayment && tx.DueBy != nil {
		return ErrDueByOnRepayment
	}

	if tx.Type == TypeCredit && tx.RepaidAt != nil {
		return ErrRepaidAtOnCredit
	}

	return nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	tx := &Transaction{
		CustomerID: params.CustomerID,
		Type:       params.Type,
		Amount:     params.Amount,
		Note:       params.Note,
		DueBy:      params.DueBy,
		RepaidAt:   params.RepaidAt,
	}

	if params.CreatedAt != nil {
		tx.CreatedAt = *params.CreatedAt
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	s.recalcs.TransactionWritten(nil, &tx.CustomerID)

	return tx, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*Transaction, error) {
	return s.repo.ListForCustomer(ctx, customerID)
}

type UpdateParams struct {
	CustomerID *uuid.UUID
	Type       *Type
	Amount     *decimal.Decimal
	Note       *string
	DueBy      *time.Time
	RepaidAt   *time.Time

	// Nil means "leave unchanged" for the pointer fields above, so
	// clearing due_by or repaid_at takes an explicit flag. Changing a
	// credit into a repayment requires ClearDueBy when a due date is set.
	ClearDueBy    bool
	ClearRepaidAt bool
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	before := tx.CustomerID

	if params.CustomerID != nil {
		tx.CustomerID = *params.CustomerID
	}

	if params.Type != nil {
		tx.Type = *params.Type
	}

	if params.Amount != nil {
		tx.Amount = *params.Amount
	}

	if params.Note != nil {
		tx.Note = params.Note
	}

	if params.DueBy != nil {
		tx.DueBy = params.DueBy
	}

	if params.RepaidAt != nil {
		tx.RepaidAt = params.RepaidAt
	}

	if params.ClearDueBy {
		tx.DueBy = nil
	}

	if params.ClearRepaidAt {
		tx.RepaidAt = nil
	}

	if err := validate(tx); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	s.recalcs.TransactionWritten(&before, &tx.CustomerID)

	return tx, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.recalcs.TransactionWritten(&tx.CustomerID, nil)

	return nil
}

// ImportBatch persists a batch of statement rows for a single customer and
// triggers exactly one balance recompute for it, no matter how many rows
// were imported.
func (s *Service) ImportBatch(ctx context.Context, customerID uuid.UUID, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	txs := make([]*Transaction, len(params))

	for i, p := range params {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		txs[i] = &Transaction{
			CustomerID: customerID,
			Type:       p.Type,
			Amount:     p.Amount,
			Note:       p.Note,
			DueBy:      p.DueBy,
			RepaidAt:   p.RepaidAt,
		}

		if p.CreatedAt != nil {
			txs[i].CreatedAt = *p.CreatedAt
		}
	}

	if err := s.repo.CreateBatch(ctx, txs); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	s.recalcs.TransactionWritten(nil, &customerID)

	return txs, nil
}
