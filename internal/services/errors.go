package services

import (
	"errors"
	"fmt"
)

// ErrMissingColumn is wrapped by a DataLoadError when the header lacks an
// expected column.
var ErrMissingColumn = errors.New("missing column")

// ErrUnknownMetric is returned when a metric other than the two selectable
// ones is requested.
var ErrUnknownMetric = errors.New("unknown metric")

// DataLoadError reports a source file that is absent or malformed.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("error loading data from %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// FieldExtractionError reports a row that lacks a field needed for its page.
type FieldExtractionError struct {
	Region string
	Line   int
	Field  string
}

func (e *FieldExtractionError) Error() string {
	return fmt.Sprintf("line %d: missing field %q", e.Line, e.Field)
}
