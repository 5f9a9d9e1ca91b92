package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError reports malformed or missing input. It is always raised
// before any write is issued.
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

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InvalidTransitionError reports a state change that the entity's current
// state does not allow. State is left unchanged.
type InvalidTransitionError struct {
	Entity string
	ID     int
	From   string
	To     string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("%s %d: cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// InsufficientStockError reports an exit larger than the quantity on hand.
type InsufficientStockError struct {
	RecordID  int
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock on inventory record %d: available %d, requested %d",
		e.RecordID, e.Available, e.Requested)
}

// TransactionError wraps a database failure that aborted a transaction.
// Everything written in that transaction has been rolled back.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed during %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// isDomainError reports whether err already carries one of the typed errors above.
func isDomainError(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		it *InvalidTransitionError
		is *InsufficientStockError
		te *TransactionError
	)
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &it) ||
		errors.As(err, &is) || errors.As(err, &te)
}

// txFailure passes typed errors through and wraps anything else (driver
// errors, begin/commit failures) as a TransactionError for op.
func txFailure(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return &TransactionError{Op: op, Err: err}
}

// requireText trims value and checks it is non-empty and fits a
// VARCHAR(maxLen) column.
func requireText(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &ValidationError{Field: field, Reason: "is required"}
	}
	if n := utf8.RuneCountInString(value); n > maxLen {
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("is %d characters, at most %d allowed", n, maxLen)}
	}
	return value, nil
}
