package disposable

import (
	"errors"
	"fmt"
)

// FallbackMessage is the validation message used when the store cannot be
// queried.
const FallbackMessage = "is an invalid email address, cannot check if it's disposable"

// Sentinel errors for the disposable service layer.
var (
	ErrRefreshInProgress = errors.New("blocklist refresh already in progress")
)

// StorageError wraps a DomainStore failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("domain store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError is returned by Validator.Validate for addresses that must
// be rejected. Err is set when the rejection is due to a lookup failure.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }
