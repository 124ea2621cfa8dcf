// Package balance keeps each customer's stored balance consistent with
// their transaction history. The engine recomputes the full balance from
// scratch on every transaction write: it re-reads the whole transaction
// set and folds it in memory before issuing a single balance write, so a
// rerun with an unchanged transaction set always produces the same result.
// That makes at-least-once redelivery of write events safe.
package balance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lebohangm/fakaloan/internal/customer"
	"github.com/lebohangm/fakaloan/internal/transaction"
)

// WriteEvent identifies the customer(s) implicated by a single transaction
// write. Before and After hold the owning customer id from the state of
// the transaction before and after the write: nil Before means a create,
// nil After means a delete, and two different ids mean the transaction was
// reassigned between customers.
type WriteEvent struct {
	Before *uuid.UUID
	After  *uuid.UUID
}

// CustomerIDs returns the distinct customer ids the event touches, in
// before-then-after order. An event with no resolvable id returns nil.
func (ev WriteEvent) CustomerIDs() []uuid.UUID {
	var ids []uuid.UUID

	if ev.Before != nil {
		ids = append(ids, *ev.Before)
	}

	if ev.After != nil && (ev.Before == nil || *ev.After != *ev.Before) {
		ids = append(ids, *ev.After)
	}

	return ids
}

// TransactionSource is the read side of the transaction store as the
// engine sees it. Unknown customer ids yield an empty slice.
type TransactionSource interface {
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*transaction.Transaction, error)
}

// Writer patches a single customer's balance column, leaving all other
// fields untouched. Implementations return customer.ErrNotFound when the
// customer row does not exist.
type Writer interface {
	PatchBalance(ctx context.Context, customerID uuid.UUID, balance decimal.Decimal) error
}

type Engine struct {
	source TransactionSource
	writer Writer
	log    *slog.Logger
}

func NewEngine(source TransactionSource, writer Writer, log *slog.Logger) *Engine {
	return &Engine{source: source, writer: writer, log: log}
}

// HandleWrite recomputes the balance of every customer the event touches.
// An event with no resolvable customer id is a no-op, not an error. On a
// reassignment both customers are recomputed even if the first fails, so a
// partial failure never leaves the other side knowingly stale.
func (e *Engine) HandleWrite(ctx context.Context, ev WriteEvent) error {
	var errs []error

	for _, id := range ev.CustomerIDs() {
		if err := e.Recalculate(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("customer %s: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

// Recalculate reads the customer's full transaction set, folds it into a
// single signed balance, and writes the result in one patch. If the read
// fails nothing is written: a stale balance beats a wrong one computed
// from a partial set. A missing customer row is logged and swallowed,
// since balance maintenance for a customer that no longer exists is moot.
func (e *Engine) Recalculate(ctx context.Context, customerID uuid.UUID) error {
	txs, err := e.source.ListForCustomer(ctx, customerID)
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	total := decimal.Zero

	for _, tx := range txs {
		switch tx.Type {
		case transaction.TypeCredit:
			total = total.Add(tx.Amount)
		case transaction.TypeRepayment:
			total = total.Sub(tx.Amount)
		default:
			// Type is validated at write time, so this is an invariant
			// violation, not a value to silently skip out of the sum.
			return fmt.Errorf("transaction %s: %w: %q", tx.ID, transaction.ErrUnknownType, tx.Type)
		}
	}

	if err := e.writer.PatchBalance(ctx, customerID, total); err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			e.log.Warn("balance write skipped, customer does not exist",
				"customer_id", customerID, "balance", total)
			return nil
		}

		return fmt.Errorf("writing balance: %w", err)
	}

	return nil
}
