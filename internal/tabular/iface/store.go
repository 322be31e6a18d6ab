package tabular

import (
	"context"
	"errors"
)

// Store is a spreadsheet-like grid addressed by sheet name and 1-based row number. Row 1 holds
// the header.
type Store interface {
	// EnsureHeader creates the sheet if needed and writes header into row 1 when it differs.
	EnsureHeader(ctx context.Context, sheet string, header []string) error
	// ReadColumn returns one column top to bottom; element i belongs to row i+1. Missing cells
	// are empty strings.
	ReadColumn(ctx context.Context, sheet string, column int) ([]string, error)
	// UpdateRow overwrites an existing row starting at the first column.
	UpdateRow(ctx context.Context, sheet string, row int, values []string) error
	// AppendRow writes values after the last used row.
	AppendRow(ctx context.Context, sheet string, values []string) error
}

// ErrRowNotFound is returned by UpdateRow when the target row does not exist.
var ErrRowNotFound = errors.New("row not found")

func IsRowNotFoundError(err error) bool {
	return errors.Is(err, ErrRowNotFound)
}
