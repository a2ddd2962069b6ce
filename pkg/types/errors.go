package types

import (
	"errors"
	"fmt"
)

// Lifecycle errors returned by the orchestrator. These are application-level
// failures: the retry harness must never retry them.
var (
	// ErrAlreadyProvisioned is returned by provision when the tenant
	// already has an instance in any status. A stopped instance must be
	// destroyed before provisioning again; there is no silent overwrite.
	ErrAlreadyProvisioned = errors.New("instance already provisioned")

	// ErrNotProvisioned is returned by operations that require an
	// existing instance when none exists.
	ErrNotProvisioned = errors.New("instance not provisioned")

	// ErrNoActiveInstance is returned by destroy when the registry has no
	// live row to soft-delete (someone already destroyed it).
	ErrNoActiveInstance = errors.New("no active instance")
)

// TransientError marks an infrastructure failure that is safe to retry:
// a dropped connection, a runtime hiccup, a registry timeout. Application
// failures and overload signals must not be wrapped in it.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// OverloadError is a deliberate load-shedding signal from a dependency.
// Retrying it would amplify the overload, so the harness never does.
type OverloadError struct {
	Err error
}

func (e *OverloadError) Error() string {
	return fmt.Sprintf("overloaded: %v", e.Err)
}

func (e *OverloadError) Unwrap() error {
	return e.Err
}

// Overloaded wraps err as an overload signal. A nil err stays nil.
func Overloaded(err error) error {
	if err == nil {
		return nil
	}
	return &OverloadError{Err: err}
}

// IsRetryable reports whether err is marked infrastructure-transient.
// Overload signals are checked first so a mistakenly double-wrapped error
// still refuses retries.
func IsRetryable(err error) bool {
	var oe *OverloadError
	if errors.As(err, &oe) {
		return false
	}
	var te *TransientError
	return errors.As(err, &te)
}
