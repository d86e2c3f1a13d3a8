package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreadableFile is returned when an upload cannot be parsed as a spreadsheet.
	ErrUnreadableFile = errors.New("unable to read spreadsheet")
	// ErrEmptyFile is returned when a spreadsheet has no data rows below its header.
	ErrEmptyFile = errors.New("spreadsheet contains no data rows")
	// ErrRowLimitExceeded is returned when an upload has more data rows than allowed.
	ErrRowLimitExceeded = errors.New("spreadsheet row limit exceeded")
	// ErrNotFound is returned when an EV customer does not exist.
	ErrNotFound = errors.New("ev customer not found")
)

// InvalidDateError reports a cell that is not a usable calendar date.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("Invalid date format: %s", e.Value)
}

// InvalidNumberError reports a cell that does not parse as a number.
type InvalidNumberError struct {
	Field string
	Value string
}

func (e *InvalidNumberError) Error() string {
	label := e.Field
	if field, ok := FieldByName(e.Field); ok {
		label = field.Label
	}
	return fmt.Sprintf("Invalid number format for %s: %s", label, e.Value)
}

// SchemaValidationError collects required-field and type problems.
type SchemaValidationError struct {
	Problems []string
}

func (e *SchemaValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "Validation failed"
	}
	return strings.Join(e.Problems, "; ")
}

// InvalidFieldsForServiceTypeError reports fields that are illegal for the
// resolved service type.
type InvalidFieldsForServiceTypeError struct {
	ServiceType ServiceType
	Fields      []string
}

func (e *InvalidFieldsForServiceTypeError) Error() string {
	return fmt.Sprintf("Invalid fields for %s service type", e.ServiceType)
}

// DuplicateServiceRequestNumberError reports a natural key that already exists.
type DuplicateServiceRequestNumberError struct {
	Number string
}

func (e *DuplicateServiceRequestNumberError) Error() string {
	return fmt.Sprintf("Service request number %s already exists", e.Number)
}

// IsValidationError reports whether err is one of the request validation errors.
func IsValidationError(err error) bool {
	var (
		dateErr   *InvalidDateError
		numberErr *InvalidNumberError
		schemaErr *SchemaValidationError
		fieldsErr *InvalidFieldsForServiceTypeError
	)
	return errors.As(err, &dateErr) ||
		errors.As(err, &numberErr) ||
		errors.As(err, &schemaErr) ||
		errors.As(err, &fieldsErr)
}
