package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lebohangm/fakaloan/internal/customer"
	"github.com/lebohangm/fakaloan/internal/transaction"
)

// Service produces customer statements: the transaction history with a
// running balance, suitable for sharing with the customer. The closing
// balance of a statement always equals the balance the recalculation
// engine maintains, because both fold the same transaction set.
type Service struct {
	customers    *customer.Service
	transactions *transaction.Service
}

func NewService(customers *customer.Service, transactions *transaction.Service) *Service {
	return &Service{customers: customers, transactions: transactions}
}

// Statement header line plus columns per transaction row.
var statementColumns = []string{"date", "type", "amount", "note", "balance"}

// WriteStatement writes the customer's statement as CSV. Transactions
// appear in creation order with the balance after each line; credits
// increase the balance, repayments decrease it. A customer belonging to a
// different owner is reported as not found, matching the API's ownership
// semantics.
func (s *Service) WriteStatement(ctx context.Context, ownerID, customerID uuid.UUID, w io.Writer) error {
	c, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return fmt.Errorf("getting customer: %w", err)
	}

	if c.OwnerID != ownerID {
		return customer.ErrNotFound
	}

	txs, err := s.transactions.ListForCustomer(ctx, customerID)
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"statement for", c.Name, "", "", ""}); err != nil {
		return fmt.Errorf("writing statement: %w", err)
	}

	if err := cw.Write(statementColumns); err != nil {
		return fmt.Errorf("writing statement: %w", err)
	}

	running := decimal.Zero

	for _, tx := range txs {
		switch tx.Type {
		case transaction.TypeCredit:
			running = running.Add(tx.Amount)
		case transaction.TypeRepayment:
			running = running.Sub(tx.Amount)
		default:
			// Same stance as the balance fold: a foreign type means
			// corrupt data, and a statement must never disagree with the
			// engine about what the balance is.
			return fmt.Errorf("transaction %s: %w: %q", tx.ID, transaction.ErrUnknownType, tx.Type)
		}

		note := ""
		if tx.Note != nil {
			note = *tx.Note
		}

		record := []string{
			tx.CreatedAt.Format(time.DateOnly),
			string(tx.Type),
			tx.Amount.StringFixed(2),
			note,
			running.StringFixed(2),
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing statement: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing statement: %w", err)
	}

	return nil
}
