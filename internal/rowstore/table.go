// Package rowstore is an append/scan/update-cell store addressed by row
// position and column name. Backends are swappable: memory, Google Sheets,
// Postgres and Redis.
package rowstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrRowOutOfRange  = errors.New("row out of range")
	ErrNoCells        = errors.New("no cells to update")
)

// Table is one sheet-like table. Row indexes are zero-based over data rows;
// the header is not a data row.
type Table interface {
	// EnsureHeader writes header when the stored one is absent or differs.
	EnsureHeader(ctx context.Context, header []string) error
	Header(ctx context.Context) ([]string, error)
	Append(ctx context.Context, row []string) error
	Rows(ctx context.Context) ([][]string, error)
	// UpdateCells writes values, keyed by column, into one row in a single
	// call. Either every cell is written or none is.
	UpdateCells(ctx context.Context, row int, values map[string]string) error
}

// Record is a data row keyed by column name.
type Record map[string]string

// Records zips each row with header. Short rows yield empty strings.
func Records(header []string, rows [][]string) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		r := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				r[col] = row[i]
			} else {
				r[col] = ""
			}
		}
		out = append(out, r)
	}
	return out
}

// ColumnIndex finds column in header.
func ColumnIndex(header []string, column string) (int, error) {
	for i, h := range header {
		if h == column {
			return i, nil
		}
	}
	return -1, ErrColumnNotFound
}

// cellIndexes resolves the columns of values against header, in column order.
func cellIndexes(header []string, values map[string]string) ([]int, []string, error) {
	if len(values) == 0 {
		return nil, nil, ErrNoCells
	}
	cols := make([]int, 0, len(values))
	byCol := make(map[int]string, len(values))
	for column, v := range values {
		i, err := ColumnIndex(header, column)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q", err, column)
		}
		cols = append(cols, i)
		byCol[i] = v
	}
	sort.Ints(cols)
	vals := make([]string, len(cols))
	for j, c := range cols {
		vals[j] = byCol[c]
	}
	return cols, vals, nil
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// pad stretches row to width so every stored row is rectangular.
func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
