package tollgate

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tollgate: not found")
	ErrAlreadyExists = errors.New("tollgate: already exists")
	ErrInvalidInput  = errors.New("tollgate: invalid input")

	// Payment validation errors, checked in this order by Pay.
	ErrInvalidAmount      = errors.New("tollgate: invalid amount")
	ErrInvalidDuration    = errors.New("tollgate: invalid duration")
	ErrUnknownContractor  = errors.New("tollgate: unknown contractor")
	ErrContractorMismatch = errors.New("tollgate: customer already subscribed to another contractor")

	// Funds errors
	ErrInsufficientFunds = errors.New("tollgate: insufficient balance or allowance")
	ErrZeroBalance       = errors.New("tollgate: nothing to withdraw")

	// Authorization errors
	ErrNotOwner      = errors.New("tollgate: caller is not the owner")
	ErrNotContractor = errors.New("tollgate: caller is not a registered contractor")

	// Registry errors
	ErrContractorExists   = errors.New("tollgate: contractor already registered")
	ErrContractorNotFound = errors.New("tollgate: contractor not found")
	ErrCustomerNotFound   = errors.New("tollgate: customer not found")
	ErrNonZeroBalance     = errors.New("tollgate: contractor has an undrawn balance")
	ErrActiveEntitlement  = errors.New("tollgate: customer still has an active entitlement")

	// Configuration errors
	ErrInvalidFee   = errors.New("tollgate: fee basis points out of range")
	ErrInvalidTerms = errors.New("tollgate: invalid contractor terms")

	// Store errors
	ErrStoreNotReady   = errors.New("tollgate: store not ready")
	ErrStoreClosed     = errors.New("tollgate: store is closed")
	ErrMigrationFailed = errors.New("tollgate: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tollgate: validation failed for %s: %s", e.Field, e.Message)
}

// IsValidation returns true if the error is a payment or configuration
// validation failure. These reject the request without touching state.
func IsValidation(err error) bool {
	var ve ValidationError
	if errors.As(err, &ve) {
		return true
	}

	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrContractorMismatch) ||
		errors.Is(err, ErrInvalidFee) ||
		errors.Is(err, ErrInvalidTerms) ||
		errors.Is(err, ErrInvalidInput)
}

// IsAuthorization returns true if the error is a caller-identity rejection.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrNotContractor)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnknownContractor) ||
		errors.Is(err, ErrContractorNotFound) ||
		errors.Is(err, ErrCustomerNotFound)
}

// IsConflict returns true if the error is a registry-state conflict:
// the operation is well-formed but the current state forbids it.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrContractorExists) ||
		errors.Is(err, ErrNonZeroBalance) ||
		errors.Is(err, ErrActiveEntitlement)
}
