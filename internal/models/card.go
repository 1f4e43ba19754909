package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CardStatus string

const (
	CardStatusInactive CardStatus = "inactive"
	CardStatusActive   CardStatus = "active"
	CardStatusFrozen   CardStatus = "frozen"
)

func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusInactive, CardStatusActive, CardStatusFrozen:
		return true
	}
	return false
}

// CanTransitionTo allows activation of a new card and freezing/unfreezing
// of an active one. Nothing goes back to inactive.
func (s CardStatus) CanTransitionTo(next CardStatus) bool {
	switch s {
	case CardStatusInactive:
		return next == CardStatusActive
	case CardStatusActive:
		return next == CardStatusFrozen
	case CardStatusFrozen:
		return next == CardStatusActive
	}
	return false
}

// DefaultDailyLimit applies to cards issued without an explicit limit.
var DefaultDailyLimit = decimal.RequireFromString("1000.00")

// Card represents a payment card linked to exactly one account
type Card struct {
	ID         int64           `json:"id" db:"id"`
	AccountID  int64           `json:"account_id" db:"account_id"`
	Status     CardStatus      `json:"status" db:"status"`
	DailyLimit decimal.Decimal `json:"daily_limit" db:"daily_limit"`
	// Timezone is the IANA zone whose midnight starts the spending day.
	// Empty means the engine default.
	Timezone  string    `json:"timezone,omitempty" db:"timezone"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
