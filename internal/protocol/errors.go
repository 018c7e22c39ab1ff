package protocol

import (
	"errors"
	"fmt"
)

// Decode failure kinds. Match them with errors.Is.
var (
	ErrMalformed     = errors.New("malformed protocol line")
	ErrMissingField  = errors.New("missing field")
	ErrInvalidFields = errors.New("invalid fields")
	ErrUnknownCode   = errors.New("unknown result type")
	ErrUnimplemented = errors.New("unimplemented result type")
)

// DecodeError describes why a protocol line could not be decoded.
type DecodeError struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Field names the missing field for ErrMissingField.
	Field string
	// Shape is the expected payload shape for ErrInvalidFields.
	Shape string
	// Code is the offending result type for ErrUnknownCode and ErrUnimplemented.
	Code uint64
	// Cause is the underlying JSON error, if any.
	Cause error
}

func (e *DecodeError) Error() string {
	var msg string
	switch e.Kind {
	case ErrMissingField:
		msg = fmt.Sprintf("%v `%s`", e.Kind, e.Field)
	case ErrInvalidFields:
		msg = fmt.Sprintf("%v: expected %s", e.Kind, e.Shape)
	case ErrUnknownCode, ErrUnimplemented:
		msg = fmt.Sprintf("%v `%d`", e.Kind, e.Code)
	default:
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *DecodeError) Is(target error) bool {
	return target == e.Kind
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

func malformed(cause error) error {
	return &DecodeError{Kind: ErrMalformed, Cause: cause}
}

func missing(field string) error {
	return &DecodeError{Kind: ErrMissingField, Field: field}
}

func invalidFields(shape string, cause error) error {
	return &DecodeError{Kind: ErrInvalidFields, Shape: shape, Cause: cause}
}
