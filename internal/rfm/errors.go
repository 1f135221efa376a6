package rfm

import (
	"errors"
	"fmt"
)

var (
	ErrDataQuality  = errors.New("rfm: data quality")
	ErrMissingField = errors.New("rfm: missing field")
)

type Dimension string

const (
	DimRecency   Dimension = "recency"
	DimFrequency Dimension = "frequency"
	DimMonetary  Dimension = "monetary"
)

// DataQualityError reports a dimension whose distribution cannot be cut
// into quartiles. It aborts the whole table.
type DataQualityError struct {
	Dimension Dimension
	Distinct  int
	Reason    string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("rfm: data quality: %s: %s (%d distinct values)", e.Dimension, e.Reason, e.Distinct)
}

func (e *DataQualityError) Unwrap() error {
	return ErrDataQuality
}

// MissingFieldError points at the first input record lacking a required
// field. Record is "order" or "order_item"; Index is its position in the
// input slice.
type MissingFieldError struct {
	Record string
	Index  int
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("rfm: missing field: %s[%d].%s", e.Record, e.Index, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}
