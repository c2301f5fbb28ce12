package wallet

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
)

var (
	// ErrPrecondition marks a call made without a required input (seed,
	// wallet identity). Retrying without supplying it is pointless.
	ErrPrecondition = errors.New("precondition failed")

	// ErrInvalidSeed is returned when seed material is absent or malformed.
	ErrInvalidSeed = errors.New("invalid seed")

	// ErrSearchExhausted is returned when no index up to the search bound
	// satisfies a derivation request.
	ErrSearchExhausted = errors.New("index search bound exceeded")

	// ErrInvalidGroup is returned for a group outside [0, TotalGroups).
	ErrInvalidGroup = errors.New("invalid group")

	// ErrGroupMismatch is returned when an explicit index does not belong
	// to the requested group.
	ErrGroupMismatch = errors.New("index does not belong to requested group")

	// ErrMissingMetadata is returned when a derived index has no persisted
	// metadata record.
	ErrMissingMetadata = errors.New("missing metadata for derived index")
)

// Precondition returns an error wrapping ErrPrecondition for the named input.
func Precondition(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// DerivationError reports a derivation request that could not be satisfied.
type DerivationError struct {
	Index    types.AddressIndex
	Group    types.Group
	HasGroup bool
	Err      error
}

func (e *DerivationError) Error() string {
	if e.HasGroup {
		return fmt.Sprintf("derive index %d for group %d: %v", e.Index, e.Group, e.Err)
	}
	return fmt.Sprintf("derive index %d: %v", e.Index, e.Err)
}

func (e *DerivationError) Unwrap() error {
	return e.Err
}

// ReconciliationError reports a derived key that could not be joined with its
// persisted metadata. It is fatal for one restoration call only.
type ReconciliationError struct {
	Index types.AddressIndex
	Err   error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile index %d: %v", e.Index, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
