package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/ruralpay/corebank/internal/lease"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/store"
	"github.com/shopspring/decimal"
)

// AccountControls changes account and card state under the same account
// leases as money movement, so a freeze never interleaves with a transfer.
type AccountControls struct {
	runner *leasedRunner
	store  store.Store
	clock  Clock
	audit  AuditRecorder
}

func NewAccountControls(st store.Store, leases lease.Manager, clock Clock, audit AuditRecorder, timeouts Timeouts, log zerolog.Logger) *AccountControls {
	return &AccountControls{
		runner: &leasedRunner{store: st, leases: leases, timeouts: timeouts, log: log},
		store:  st,
		clock:  clock,
		audit:  audit,
	}
}

func (c *AccountControls) ChangeAccountStatus(ctx context.Context, accountID int64, status models.AccountStatus) (*models.Account, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown account status %q", ErrInvalidStatusTransition, status)
	}

	var updated *models.Account
	err := c.runner.run(ctx, []int64{accountID}, func(ctx context.Context, tx store.Tx) error {
		acct, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return storeError(err, ErrAccountNotFound, fmt.Sprintf("account %d", accountID))
		}
		if !acct.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: account %d cannot go from %s to %s", ErrInvalidStatusTransition, accountID, acct.Status, status)
		}
		updated, err = tx.SetAccountStatus(ctx, accountID, status, acct.Version)
		if err != nil {
			return storeError(err, nil, fmt.Sprintf("set status of account %d", accountID))
		}
		return nil
	})

	c.record(ctx, "account_status", AuditEvent{SourceAccountID: accountID}, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *AccountControls) ChangeCardStatus(ctx context.Context, cardID int64, status models.CardStatus) (*models.Card, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown card status %q", ErrInvalidStatusTransition, status)
	}

	var updated *models.Card
	err := c.onCard(ctx, cardID, func(ctx context.Context, tx store.Tx, card *models.Card) error {
		if !card.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: card %d cannot go from %s to %s", ErrInvalidStatusTransition, cardID, card.Status, status)
		}
		var err error
		updated, err = tx.SetCardStatus(ctx, cardID, status)
		if err != nil {
			return storeError(err, nil, fmt.Sprintf("set status of card %d", cardID))
		}
		return nil
	})

	c.record(ctx, "card_status", AuditEvent{CardID: cardID}, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetCardDailyLimit replaces the card's daily limit. Zero blocks all charges.
func (c *AccountControls) SetCardDailyLimit(ctx context.Context, cardID int64, limit decimal.Decimal) (*models.Card, error) {
	if limit.IsNegative() || !limit.Equal(limit.Truncate(2)) {
		return nil, fmt.Errorf("%w: daily limit %s", ErrInvalidAmount, limit.String())
	}

	var updated *models.Card
	err := c.onCard(ctx, cardID, func(ctx context.Context, tx store.Tx, card *models.Card) error {
		var err error
		updated, err = tx.SetCardDailyLimit(ctx, cardID, limit)
		if err != nil {
			return storeError(err, nil, fmt.Sprintf("set daily limit of card %d", cardID))
		}
		return nil
	})

	c.record(ctx, "card_daily_limit", AuditEvent{CardID: cardID, Amount: limit}, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// onCard runs fn on a fresh copy of the card under its account's lease.
func (c *AccountControls) onCard(ctx context.Context, cardID int64, fn func(ctx context.Context, tx store.Tx, card *models.Card) error) error {
	card, err := c.store.GetCard(ctx, cardID)
	if err != nil {
		return storeError(err, ErrCardNotFound, fmt.Sprintf("card %d", cardID))
	}

	return c.runner.run(ctx, []int64{card.AccountID}, func(ctx context.Context, tx store.Tx) error {
		fresh, err := tx.GetCard(ctx, cardID)
		if err != nil {
			return storeError(err, ErrCardNotFound, fmt.Sprintf("card %d", cardID))
		}
		return fn(ctx, tx, fresh)
	})
}

func (c *AccountControls) record(ctx context.Context, eventType string, event AuditEvent, err error) {
	event.Timestamp = c.clock.Now()
	event.EventType = eventType
	event.Err = err
	switch {
	case err == nil:
		event.State = StateCommitted
	case errors.Is(err, ErrStoreFault):
		event.State = StateAborted
	default:
		event.State = StateRejected
	}
	c.audit.Record(ctx, event)
}
