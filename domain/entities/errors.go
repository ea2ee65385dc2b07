package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies expected, caller-facing outcomes. Every kind except
// ErrorKindUnavailable is a normal result of user behavior, not a fault.
type ErrorKind string

const (
	ErrorKindInsufficientFunds ErrorKind = "insufficient_funds"
	ErrorKindSelfClaim         ErrorKind = "self_claim"
	ErrorKindPriceMismatch     ErrorKind = "price_mismatch"
	ErrorKindInvalidCode       ErrorKind = "invalid_code"
	ErrorKindStaleState        ErrorKind = "stale_state"
	ErrorKindNotFound          ErrorKind = "not_found"
	ErrorKindUnavailable       ErrorKind = "unavailable"
)

// DomainError is an expected outcome carrying its kind and a user-facing
// message. Infrastructure faults are wrapped with ErrorKindUnavailable so the
// caller can distinguish "you can't" from "we can't right now".
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates an expected outcome error of the given kind
func NewDomainError(kind ErrorKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

// NewUnavailableError wraps an infrastructure fault
func NewUnavailableError(err error, message string) *DomainError {
	return &DomainError{Kind: ErrorKindUnavailable, Message: message, Err: err}
}

// ErrInsufficientFunds reports that a hold or debit exceeds spendable balance
func ErrInsufficientFunds(have, need int64) *DomainError {
	return &DomainError{
		Kind:    ErrorKindInsufficientFunds,
		Message: fmt.Sprintf("insufficient girinhas: have %d spendable, need %d", have, need),
	}
}

// ErrSelfClaim reports a claim by the item's own publisher
func ErrSelfClaim() *DomainError {
	return NewDomainError(ErrorKindSelfClaim, "cannot claim your own item")
}

// ErrPriceMismatch reports a claim carrying a stale price
func ErrPriceMismatch(offered, price int64) *DomainError {
	return &DomainError{
		Kind:    ErrorKindPriceMismatch,
		Message: fmt.Sprintf("offered amount %d does not match item price %d", offered, price),
	}
}

// ErrInvalidCode reports a confirmation code mismatch
func ErrInvalidCode() *DomainError {
	return NewDomainError(ErrorKindInvalidCode, "confirmation code does not match")
}

// ErrStaleState reports an operation against an already-resolved record
func ErrStaleState(message string) *DomainError {
	return NewDomainError(ErrorKindStaleState, message)
}

// ErrNotFound reports a missing record
func ErrNotFound(what string) *DomainError {
	return NewDomainError(ErrorKindNotFound, what+" not found")
}

// KindOf extracts the error kind, or ErrorKindUnavailable for plain errors
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorKindUnavailable
}

// IsKind checks whether an error carries the given domain kind
func IsKind(err error, kind ErrorKind) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Kind == kind
}
