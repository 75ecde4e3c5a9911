package invoice

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is matched by a ValidationError for an empty required field.
	ErrMissingField = errors.New("required field is empty")

	// ErrInvalidQuantity is matched by a ValidationError for a quantity that is
	// not a positive base-10 integer.
	ErrInvalidQuantity = errors.New("quantity is not a positive integer")

	// ErrIndexOutOfRange is matched by every IndexError.
	ErrIndexOutOfRange = errors.New("line index out of range")

	// ErrSubmissionInProgress is returned when a ledger is already being submitted.
	ErrSubmissionInProgress = errors.New("submission already in progress")
)

// ValidationKind tells which validation rule rejected raw input.
type ValidationKind string

const (
	MissingField    ValidationKind = "missing_field"
	InvalidQuantity ValidationKind = "invalid_quantity"
)

// ValidationError reports the first rule a RawLineInput failed.
type ValidationError struct {
	Kind  ValidationKind
	Field string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("validation: %s is required", e.Field)
	case InvalidQuantity:
		return fmt.Sprintf("validation: %s must be a positive integer", e.Field)
	default:
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Kind)
	}
}

// Is lets errors.Is match the kind sentinels.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrMissingField:
		return e.Kind == MissingField
	case ErrInvalidQuantity:
		return e.Kind == InvalidQuantity
	}
	return false
}

// IndexError reports an edit or removal at a position the ledger does not have.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("line index %d out of range [0,%d)", e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}
