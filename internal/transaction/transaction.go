package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type represents the type of transaction (credit extended to a customer
// or a repayment received from them).
type Type string

const (
	TypeCredit    Type = "credit"
	TypeRepayment Type = "repayment"
)

// Valid reports whether t is one of the known transaction types.
func (t Type) Valid() bool {
	return t == TypeCredit || t == TypeRepayment
}

var (
	ErrNotFound    = errors.New("transaction not found")
	ErrUnknownType = errors.New("unknown transaction type")

	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrDueByOnRepayment  = errors.New("due_by only applies to credit transactions")
	ErrRepaidAtOnCredit  = errors.New("repaid_at only applies to repayment transactions")
)

// Transaction represents a single credit extension or repayment recorded
// against a customer. Amount is always positive; the sign of its effect on
// the customer balance comes from Type.
type Transaction struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Type       Type
	Amount     decimal.Decimal
	Note       *string
	DueBy      *time.Time // Credit only.
	RepaidAt   *time.Time // Repayment only.
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
}
