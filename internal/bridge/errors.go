package bridge

import (
	"fmt"
)

// FunctionNotBoundError occurs when a call names a symbol the bridge has not
// bound.
type FunctionNotBoundError struct {
	Name string
}

func (e *FunctionNotBoundError) Error() string {
	return fmt.Sprintf("function '%s' is not bound", e.Name)
}

// GuestCallError occurs when a bound guest function traps or fails.
type GuestCallError struct {
	Name string
	Err  error
}

func (e *GuestCallError) Error() string {
	return fmt.Sprintf("guest call '%s' failed: %v", e.Name, e.Err)
}

func (e *GuestCallError) Unwrap() error {
	return e.Err
}

// ExecutionError wraps a failed execute-mode flush.
type ExecutionError struct {
	Snippet string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute failed for %q: %v", e.Snippet, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
