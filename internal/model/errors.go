package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by repositories and services. Compare with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrOutOfStock     = errors.New("out of stock")
	ErrConsistency    = errors.New("cross-store consistency failure")
	ErrMalformedInput = errors.New("malformed input")
)

// OutOfStockError identifies the cart line that aborted a checkout.
type OutOfStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	label := e.Name
	if label == "" {
		label = e.ProductID
	}
	return fmt.Sprintf("product %s is out of stock (requested %d, available %d)", label, e.Requested, e.Available)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

// StoreError wraps a store failure with the operation and entity it concerned.
type StoreError struct {
	Op  string // e.g. "inventory.Create"
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Malformed builds an ErrMalformedInput with a reason.
func Malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
