package model

import "fmt"

// ValidationError rejects a malformed or contradictory timer spec. Field names
// match the JSON field in the management API.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid timer spec: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown timer id on update or delete.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("timer %s not found", e.ID)
}

// StoreError wraps a persistence failure. Management operations that hit one
// fail atomically; the in-memory timer set is left untouched.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("timer store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DriverError wraps an output driver failure, including per-call timeouts.
type DriverError struct {
	Output string
	Err    error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("output driver failed for %q: %v", e.Output, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }
