package classfile

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMagic  = errors.New("invalid class file magic")
	ErrTruncated     = errors.New("unexpected end of class data")
	ErrBadConstant   = errors.New("bad constant pool reference")
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// FormatError reports where in the class bytes decoding failed
type FormatError struct {
	Offset int
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
