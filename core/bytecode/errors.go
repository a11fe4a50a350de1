package bytecode

import (
	"errors"
	"fmt"
)

var (
	ErrUnrecognizedOpcode = errors.New("unrecognized opcode")
	ErrInvalidOperand     = errors.New("invalid operand")
	ErrLabelNotFound      = errors.New("label not found")
	ErrDuplicateLabel     = errors.New("label placed more than once")
)

// OpcodeError reports an opcode missing from the catalog.
type OpcodeError struct {
	Op Opcode
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("unrecognized opcode %#x", uint16(e.Op))
}

func (e *OpcodeError) Unwrap() error { return ErrUnrecognizedOpcode }

// OperandError reports an operand that does not fit the catalog entry of its
// instruction. Pos is the operand position, or -1 for the operand list.
type OperandError struct {
	Op     Opcode
	Pos    int
	Reason string
}

func (e *OperandError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("invalid operands for %v: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("invalid operand %d for %v: %s", e.Pos, e.Op, e.Reason)
}

func (e *OperandError) Unwrap() error { return ErrInvalidOperand }

// LabelError reports a label that is referenced but never placed, or placed
// twice.
type LabelError struct {
	Label Label
	Err   error
}

func (e *LabelError) Error() string {
	if e.Err == ErrDuplicateLabel {
		return fmt.Sprintf("label %s placed more than once", e.Label)
	}
	return fmt.Sprintf("label %s not found", e.Label)
}

func (e *LabelError) Unwrap() error { return e.Err }
