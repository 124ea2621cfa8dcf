package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lebohangm/fakaloan/internal/transaction"
)

// ParseAmount parses a statement amount cell into a positive decimal.
// Both "1 234,56" (comma decimal separator, common in local bank exports)
// and "1,234.56" are accepted. Currency symbols and spaces are stripped.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', 'R':
			return -1
		}

		return r
	}, strings.TrimSpace(s))

	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	// Decide which of comma/dot is the decimal separator by whichever
	// appears last; the other is a thousands separator.
	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')

	if lastComma > lastDot {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", transaction.ErrNonPositiveAmount, amount)
	}

	return amount, nil
}
