package services

import (
	"errors"
	"fmt"
)

// GatewayError wraps failures talking to the payment gateway. Callers show
// the user a retry option instead of the raw error.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// GrantError wraps failures minting or persisting an invite link after a
// successful payment. Callers must offer the contact-support path.
type GrantError struct {
	Op  string
	Err error
}

func (e *GrantError) Error() string {
	return fmt.Sprintf("invite grant: %s: %v", e.Op, e.Err)
}

func (e *GrantError) Unwrap() error { return e.Err }

// ErrPaymentNotFound is returned when reconciliation is asked about a
// gateway payment id with no local row.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrPaymentProofMismatch is returned when a grant is requested with a
// payment row that is not a succeeded payment of that user.
var ErrPaymentProofMismatch = errors.New("payment row is not a succeeded payment of this user")
