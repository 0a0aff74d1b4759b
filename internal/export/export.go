// Package export serializes an ordered expense set to JSON or CSV.
// Input ordering is the list contract, (date ASC, id ASC); this package
// preserves it and never re-sorts.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"expensetracker/internal/core"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// csvHeader is the fixed CSV column order. The JSON key order matches
// it field for field.
var csvHeader = []string{"id", "date", "amount", "category", "subcategory", "description", "created_at", "updated_at"}

// Record is the wire shape of one exported expense. Struct field order
// fixes the JSON key order; amounts are decimal strings so no reader
// has to round-trip floats.
type Record struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// NewRecord converts a stored expense to its export shape.
func NewRecord(e core.Expense) Record {
	return Record{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Description: e.Description,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

// Marshal renders the expense set in the requested format. Formats
// other than "json" and "csv" fail with core.ErrValidation.
func Marshal(format string, expenses []core.Expense) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshalJSON(expenses)
	case FormatCSV:
		return marshalCSV(expenses)
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q, use %q or %q",
			core.ErrValidation, format, FormatJSON, FormatCSV)
	}
}

func marshalJSON(expenses []core.Expense) ([]byte, error) {
	records := make([]Record, len(expenses))
	for i, e := range expenses {
		records[i] = NewRecord(e)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal expenses: %w", err)
	}
	return data, nil
}

func marshalCSV(expenses []core.Expense) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range expenses {
		rec := NewRecord(e)
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Date,
			rec.Amount,
			rec.Category,
			rec.Subcategory,
			rec.Description,
			rec.CreatedAt,
			rec.UpdatedAt,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
