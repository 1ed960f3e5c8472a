package pex

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error Types
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrUnexpectedEOF      = errors.New("unexpected end of data")
	ErrTrailingData       = errors.New("trailing data after last script")
	ErrInvalidTag         = errors.New("invalid data type tag")
	ErrInvalidStringIndex = errors.New("invalid string index")
	ErrInvalidOpcode      = errors.New("invalid opcode")
	ErrSizeMismatch       = errors.New("declared size does not match content")
	ErrTooLarge           = errors.New("value too large for field")
	ErrSyntheticOperand   = errors.New("synthetic operand cannot be serialized")
	ErrArgCount           = errors.New("argument count does not match arguments")
	ErrNilString          = errors.New("missing string reference")
	ErrMissingHandler     = errors.New("property flags name a handler that is not present")
)

// FormatError reports a failure to decode a container. Offset is the read
// position at which decoding stopped.
type FormatError struct {
	Offset int
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("pex: format error at offset %d: %v", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
