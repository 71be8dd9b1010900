package matcher

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is returned when the match column is absent from an input table.
var ErrMissingColumn = errors.New("match column missing")

// SchemaError names the column and the tables lacking it.
type SchemaError struct {
	Column string
	Tables []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: %q not found in %s", ErrMissingColumn, e.Column, strings.Join(e.Tables, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrMissingColumn }
