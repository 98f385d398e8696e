package model

import "errors"

// Error kinds raised while configuring and emitting a network. They are
// wrapped with context; test for them with errors.Is.
var (
	ErrInvalidName          = errors.New("invalid name")
	ErrDuplicateName        = errors.New("duplicate name")
	ErrShapeMismatch        = errors.New("shape mismatch")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrInvalidTuple         = errors.New("invalid tuple")
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrPreconditionViolated = errors.New("precondition violated")
)
