// Package transfer handles importing and exporting inventory files.
package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bryan-buckman/pantry/internal/model"
)

// Columns is the CSV header written by WriteItemsCSV.
var Columns = []string{
	"name", "category", "quantity", "unit", "storage_condition",
	"purchase_date", "expiration_date", "notes", "emoji",
}

// RowError is a rejected CSV row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// WriteItemsCSV writes items with a header row.
func WriteItemsCSV(w io.Writer, items []model.FoodItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, it := range items {
		row := []string{
			it.Name,
			it.Category,
			strconv.FormatFloat(it.Quantity, 'f', -1, 64),
			it.Unit,
			it.StorageCondition,
			it.PurchaseDate.DateString(),
			it.ExpirationDate.DateString(),
			it.Notes,
			it.Emoji,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", it.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadItemsCSV parses an item list. The header may order columns freely;
// only "name" is required. Quantity defaults to 1. Expiration dates are
// not imported since the backend derives them. Rows that cannot be parsed
// are returned as *RowError values joined into the error, alongside the
// rows that could.
func ReadItemsCSV(r io.Reader) ([]model.NewFoodItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		idx[h] = i
	}
	if _, ok := idx["name"]; !ok {
		return nil, errors.New("csv header has no name column")
	}

	var (
		items []model.NewFoodItem
		errs  []error
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return items, fmt.Errorf("read csv: %w", err)
			}
			errs = append(errs, &RowError{Line: pe.Line, Err: pe.Err})
			continue
		}
		line, _ := cr.FieldPos(0)
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if isBlank(rec) {
			continue
		}

		in := model.DefaultNewFoodItem()
		in.Name = get("name")
		if in.Name == "" {
			errs = append(errs, &RowError{Line: line, Err: errors.New("name is empty")})
			continue
		}
		if q := get("quantity"); q != "" {
			f, err := strconv.ParseFloat(q, 64)
			if err != nil {
				errs = append(errs, &RowError{Line: line, Err: fmt.Errorf("quantity %q is not a number", q)})
				continue
			}
			in.Quantity = f
		}
		if v := get("unit"); v != "" {
			in.Unit = v
		}
		if v := get("storage_condition"); v != "" {
			in.StorageCondition = v
		}
		in.Category = get("category")
		in.PurchaseDate = get("purchase_date")
		in.Notes = get("notes")
		in.Emoji = get("emoji")
		items = append(items, in)
	}
	return items, errors.Join(errs...)
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
