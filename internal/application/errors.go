package application

import (
	"errors"
	"fmt"
)

// ErrInfrastructure is the kind of every storage failure that is not a
// domain error (connectivity, timeouts, driver errors).
var ErrInfrastructure = errors.New("infrastructure failure")

// InfrastructureError wraps a storage failure with the operation that hit it.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func (e *InfrastructureError) Is(target error) bool { return target == ErrInfrastructure }
