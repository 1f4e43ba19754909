package services

import (
	"fmt"

	"github.com/ruralpay/corebank/internal/models"
	"github.com/shopspring/decimal"
)

type Direction int

const (
	Debit Direction = iota
	Credit
)

func (d Direction) String() string {
	if d == Debit {
		return "debit"
	}
	return "credit"
}

// BalanceGuard decides whether an account may take part in a movement.
// It only looks at the record it is given.
type BalanceGuard struct{}

func NewBalanceGuard() *BalanceGuard {
	return &BalanceGuard{}
}

func (g *BalanceGuard) Validate(account *models.Account, amount decimal.Decimal, currency string, direction Direction) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if account.Status != models.AccountStatusActive {
		return fmt.Errorf("%w: account %d is %s", ErrAccountNotActive, account.ID, account.Status)
	}
	if account.Currency != currency {
		return fmt.Errorf("%w: account %d holds %s, operation is in %s", ErrCurrencyMismatch, account.ID, account.Currency, currency)
	}
	if direction == Debit && !account.Type.AllowsOverdraft() && account.Balance.LessThan(amount) {
		return fmt.Errorf("%w: account %d has %s, needs %s", ErrInsufficientFunds, account.ID, account.Balance.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

// validateAmount accepts positive amounts with at most two decimal places.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, amount.String())
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w: %s has more than two decimal places", ErrInvalidAmount, amount.String())
	}
	return nil
}
