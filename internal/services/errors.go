package services

import (
	"errors"
	"net/http"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAccountNotActive   = errors.New("account is not active")
	ErrAccountNotFound    = errors.New("account not found")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrDailyLimitExceeded = errors.New("card daily spending limit exceeded")
	ErrCardNotActive      = errors.New("card is not active")
	ErrBusy               = errors.New("accounts busy, retry later")
	ErrStoreFault         = errors.New("store fault")

	ErrCardNotFound            = errors.New("card not found")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrSameAccount             = errors.New("source and destination account are the same")
	ErrInvalidOperation        = errors.New("invalid operation")
	ErrCancelled               = errors.New("operation cancelled")
	ErrEntryNotFound           = errors.New("ledger entry not found")
	ErrNotReversible           = errors.New("ledger entry cannot be reversed")
	ErrAlreadyReversed         = errors.New("ledger entry already reversed")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

type errorKind struct {
	err    error
	code   string
	status int
}

// errorKinds is ordered; the first match wins.
var errorKinds = []errorKind{
	{ErrInsufficientFunds, "insufficient_funds", http.StatusUnprocessableEntity},
	{ErrDailyLimitExceeded, "daily_limit_exceeded", http.StatusUnprocessableEntity},
	{ErrAccountNotActive, "account_not_active", http.StatusForbidden},
	{ErrCardNotActive, "card_not_active", http.StatusForbidden},
	{ErrAccountNotFound, "account_not_found", http.StatusNotFound},
	{ErrCardNotFound, "card_not_found", http.StatusNotFound},
	{ErrEntryNotFound, "entry_not_found", http.StatusNotFound},
	{ErrCurrencyMismatch, "currency_mismatch", http.StatusBadRequest},
	{ErrInvalidAmount, "invalid_amount", http.StatusBadRequest},
	{ErrSameAccount, "same_account", http.StatusBadRequest},
	{ErrInvalidOperation, "invalid_operation", http.StatusBadRequest},
	{ErrNotReversible, "not_reversible", http.StatusBadRequest},
	{ErrInvalidStatusTransition, "invalid_status_transition", http.StatusBadRequest},
	{ErrAlreadyReversed, "already_reversed", http.StatusConflict},
	{ErrCancelled, "cancelled", http.StatusRequestTimeout},
	{ErrBusy, "busy", http.StatusServiceUnavailable},
	{ErrStoreFault, "store_fault", http.StatusInternalServerError},
}

func lookupKind(err error) (errorKind, bool) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k, true
		}
	}
	return errorKind{}, false
}

// ErrorCode returns the stable machine-readable code for err, or
// "internal_error" for errors outside the engine taxonomy.
func ErrorCode(err error) string {
	if k, ok := lookupKind(err); ok {
		return k.code
	}
	return "internal_error"
}

// HTTPStatus maps err to the response status used by the handlers.
func HTTPStatus(err error) int {
	if k, ok := lookupKind(err); ok {
		return k.status
	}
	return http.StatusInternalServerError
}

// IsRetryable reports whether the same request may succeed if sent again
// unchanged. Only contention and store faults qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrStoreFault)
}
