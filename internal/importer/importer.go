package importer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lebohangm/fakaloan/internal/transaction"
)

// Row is a single parsed statement line before it becomes a transaction.
// RawDescription keeps the untouched statement text so note suggestions
// can be matched against it.
type Row struct {
	Date           time.Time
	Type           transaction.Type
	Amount         decimal.Decimal
	RawDescription string
}
