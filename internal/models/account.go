package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeBusiness AccountType = "business"
)

// AllowsOverdraft reports whether a debit may take the balance below zero.
// No account type in this system does.
func (t AccountType) AllowsOverdraft() bool {
	return false
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeBusiness:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusFrozen, AccountStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo enforces active -> frozen -> closed. A closed account is
// never reopened and a frozen one never returns to active.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	switch s {
	case AccountStatusActive:
		return next == AccountStatusFrozen || next == AccountStatusClosed
	case AccountStatusFrozen:
		return next == AccountStatusClosed
	}
	return false
}

// Account is a snapshot of an account record. The store owns the record;
// callers only ever see copies taken inside a leased transaction.
type Account struct {
	ID        int64           `json:"id" db:"id"`
	OwnerID   int64           `json:"owner_id" db:"owner_id"`
	Type      AccountType     `json:"account_type" db:"account_type"`
	Currency  string          `json:"currency" db:"currency"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Status    AccountStatus   `json:"status" db:"status"`
	Version   int64           `json:"version" db:"version"` // for optimistic locking
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
