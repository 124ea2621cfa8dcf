package customer

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("customer not found")

// Customer represents a credit customer of a shop owner. Balance is owned
// by the balance recalculation engine: it always converges to the sum of
// the customer's credit transactions minus repayments, and is never edited
// directly through the customer API.
type Customer struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Name            string
	CellphoneNumber string
	Address         *string
	Balance         decimal.Decimal
	CreditScore     *int
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	DeletedAt       *time.Time
}
