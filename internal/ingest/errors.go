package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the input path does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrEmptyFile is returned for zero-byte inputs or inputs without a header.
	ErrEmptyFile = errors.New("file is empty")
	// ErrEncodingExhausted is returned when no candidate encoding decodes the file.
	ErrEncodingExhausted = errors.New("no encoding could decode the file")
)

// IngestError records the failing operation and path of an ingest failure.
type IngestError struct {
	Op   string
	Path string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
