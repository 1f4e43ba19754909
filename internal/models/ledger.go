package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeTransfer   EntryType = "transfer"
	EntryTypeDeposit    EntryType = "deposit"
	EntryTypeWithdrawal EntryType = "withdrawal"
	EntryTypeCardCharge EntryType = "card_charge"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeTransfer, EntryTypeDeposit, EntryTypeWithdrawal, EntryTypeCardCharge:
		return true
	}
	return false
}

// LedgerEntry is the immutable record of one applied money movement.
type LedgerEntry struct {
	ID                      uuid.UUID        `json:"id" db:"id"`
	Reference               string           `json:"reference" db:"reference"`
	Type                    EntryType        `json:"type" db:"entry_type"`
	SourceAccountID         *int64           `json:"source_account_id,omitempty" db:"source_account_id"`
	DestinationAccountID    *int64           `json:"destination_account_id,omitempty" db:"destination_account_id"`
	CardID                  *int64           `json:"card_id,omitempty" db:"card_id"`
	Amount                  decimal.Decimal  `json:"amount" db:"amount"`
	Currency                string           `json:"currency" db:"currency"`
	Description             string           `json:"description" db:"description"`
	Merchant                string           `json:"merchant,omitempty" db:"merchant"`
	ReversesEntryID         *uuid.UUID       `json:"reverses_entry_id,omitempty" db:"reverses_entry_id"`
	SourceBalanceAfter      *decimal.Decimal `json:"source_balance_after,omitempty" db:"source_balance_after"`
	DestinationBalanceAfter *decimal.Decimal `json:"destination_balance_after,omitempty" db:"destination_balance_after"`
	CreatedAt               time.Time        `json:"created_at" db:"created_at"`
}

// AccountDelta is the signed balance change an entry applied to one account.
type AccountDelta struct {
	AccountID int64
	Delta     decimal.Decimal
}

// Deltas returns the debit (negative) and credit (positive) the entry
// represents, source first.
func (e *LedgerEntry) Deltas() []AccountDelta {
	deltas := make([]AccountDelta, 0, 2)
	if e.SourceAccountID != nil {
		deltas = append(deltas, AccountDelta{AccountID: *e.SourceAccountID, Delta: e.Amount.Neg()})
	}
	if e.DestinationAccountID != nil {
		deltas = append(deltas, AccountDelta{AccountID: *e.DestinationAccountID, Delta: e.Amount})
	}
	return deltas
}

// Touches reports whether the entry moved money in or out of the account.
func (e *LedgerEntry) Touches(accountID int64) bool {
	return (e.SourceAccountID != nil && *e.SourceAccountID == accountID) ||
		(e.DestinationAccountID != nil && *e.DestinationAccountID == accountID)
}

// EntryFilter narrows an account's ledger history. Zero values mean no bound.
type EntryFilter struct {
	AccountID int64
	StartDate *time.Time
	EndDate   *time.Time
	Type      EntryType
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Offset    int
	Limit     int
}

// Matches applies every bound except AccountID paging.
func (f EntryFilter) Matches(e *LedgerEntry) bool {
	if !e.Touches(f.AccountID) {
		return false
	}
	if f.StartDate != nil && e.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.CreatedAt.After(*f.EndDate) {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.MinAmount != nil && e.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && e.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}
