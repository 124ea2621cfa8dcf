package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/lebohangm/fakaloan/internal/encoding"
	"github.com/lebohangm/fakaloan/internal/transaction"
)

// Parser reads customer statement CSVs and produces rows ready to become
// transactions. The expected layout is a header containing at least the
// date, type, and amount columns; a note column is optional. Footer rows
// and rows with unparseable dates are skipped, matching how spreadsheet
// exports pad their output.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Column names accepted in the header (case-insensitive).
const (
	colDate   = "date"
	colType   = "type"
	colAmount = "amount"
	colNote   = "note"
)

var dateLayouts = []string{
	time.DateOnly,
	"02/01/2006",
	"02-01-2006",
}

func (p *Parser) Parse(r io.Reader) ([]Row, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cols, headerIdx, ok := findHeader(records)
	if !ok {
		return nil, fmt.Errorf("no statement header found: expected %q, %q and %q columns", colDate, colType, colAmount)
	}

	return parseRows(cols, records[headerIdx+1:], headerIdx+1)
}

// colIndex maps column names to their index in the row.
type colIndex map[string]int

func findHeader(records [][]string) (colIndex, int, bool) {
	for rowIdx, row := range records {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name != "" {
				cols[name] = i
			}
		}

		_, hasDate := cols[colDate]
		_, hasType := cols[colType]
		_, hasAmount := cols[colAmount]

		if hasDate && hasType && hasAmount {
			return cols, rowIdx, true
		}
	}

	return nil, 0, false
}

func parseRows(cols colIndex, records [][]string, headerRowNum int) ([]Row, error) {
	dateIdx := cols[colDate]
	typeIdx := cols[colType]
	amountIdx := cols[colAmount]

	noteIdx, hasNote := cols[colNote]

	var rows []Row

	for i, record := range records {
		rowNum := headerRowNum + i + 1 // 1-based, first row after the header

		date, ok := parseDate(record, dateIdx)
		if !ok {
			continue
		}

		txType := transaction.Type(strings.ToLower(cellValue(record, typeIdx)))
		if !txType.Valid() {
			return nil, fmt.Errorf("row %d: %w: %q", rowNum, transaction.ErrUnknownType, cellValue(record, typeIdx))
		}

		amount, err := ParseAmount(cellValue(record, amountIdx))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		row := Row{
			Date:   date,
			Type:   txType,
			Amount: amount,
		}

		if hasNote {
			row.RawDescription = cellValue(record, noteIdx)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func parseDate(record []string, idx int) (time.Time, bool) {
	s := cellValue(record, idx)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func cellValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[idx])
}
