package service

import (
	"errors"
	"fmt"
)

// Fault tells the boundary layer who is to blame for a failed operation.
type Fault int

const (
	FaultClient Fault = iota + 1
	FaultInternal
)

// faulter is implemented by every error this package returns.
type faulter interface {
	Fault() Fault
}

// IsClientFault reports whether err was caused by the request rather than the system.
// Unknown errors count as internal.
func IsClientFault(err error) bool {
	var f faulter
	if errors.As(err, &f) {
		return f.Fault() == FaultClient
	}
	return false
}

// ValidationError is a malformed request. It never reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Fault() Fault { return FaultClient }

// NotFoundError names an item that did not exist when it was read.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Fault() Fault { return FaultClient }

// InsufficientStockError names the first line whose quantity exceeds what is on hand.
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	name := e.ItemName
	if name == "" {
		name = e.ItemID
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Fault() Fault { return FaultClient }

// ConflictError means every attempt lost a race against concurrent writers.
type ConflictError struct {
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction conflicted %d times: %v", e.Attempts, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Fault() Fault { return FaultInternal }

// StoreError wraps any storage, transport or deadline failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Fault() Fault { return FaultInternal }
