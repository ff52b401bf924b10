package scans

import (
	"errors"
	"fmt"
)

// ErrStorage matches every failure of the durable scan store
var ErrStorage = errors.New("scan storage failure")

// StorageError wraps a store failure with the operation that hit it
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("scan storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
