package blocks

import "github.com/pkg/errors"

// Code identifies the kind of failure a tree operation reports. It exists
// so callers can branch on outcome without string-matching error text, in
// the result/error discipline recommended over the original implementation's
// bare integer return codes.
type Code byte

// Error codes. NoError is never itself returned as an error; it exists so
// Code has a usable zero value.
const (
	NoError Code = iota
	NoSpace
	Nonexistent
	AlreadyExists
	Unimplemented
	WrongNodeType
	OutOfBounds
	Insane
)

func (c Code) String() string {
	switch c {
	case NoSpace:
		return "NoSpace"
	case Nonexistent:
		return "Nonexistent"
	case AlreadyExists:
		return "AlreadyExists"
	case Unimplemented:
		return "Unimplemented"
	case WrongNodeType:
		return "WrongNodeType"
	case OutOfBounds:
		return "OutOfBounds"
	case Insane:
		return "Insane"
	default:
		return "NoError"
	}
}

// codeError pairs a Code with a human-readable message so errors.Is keeps
// working for sentinel comparisons while String() output stays useful.
type codeError struct {
	code Code
	msg  string
}

func (e *codeError) Error() string {
	return e.msg
}

// Is lets errors.Is(err, ErrNonexistent) succeed even when err has been
// wrapped with errors.WithMessage/WithStack along the way.
func (e *codeError) Is(target error) bool {
	other, ok := target.(*codeError)
	return ok && other.code == e.code
}

func newCodeError(code Code, msg string) error {
	return &codeError{code: code, msg: msg}
}

// Sentinel errors corresponding to spec.md §6.2.
var (
	ErrNoSpace       = newCodeError(NoSpace, "no free block available")
	ErrNonexistent   = newCodeError(Nonexistent, "key does not exist")
	ErrAlreadyExists = newCodeError(AlreadyExists, "key already exists")
	ErrUnimplemented = newCodeError(Unimplemented, "operation not implemented")
	ErrWrongNodeType = newCodeError(WrongNodeType, "operation not valid for this node type")
	ErrOutOfBounds   = newCodeError(OutOfBounds, "slot index out of bounds")
	ErrInsane        = newCodeError(Insane, "tree invariant violated")
)

// CodeOf extracts the Code carried by err, if any, walking the error chain
// the same way errors.Is does.
func CodeOf(err error) (Code, bool) {
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code, true
	}
	return NoError, false
}

// Insanef wraps a formatted message as an Insane error, for invariant
// checks that need to report what specifically went wrong.
func Insanef(format string, args ...interface{}) error {
	return newCodeError(Insane, errors.Errorf(format, args...).Error())
}
