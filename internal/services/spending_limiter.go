package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/store"
	"github.com/shopspring/decimal"
)

// DailySpending is a card's position in its current daily window.
type DailySpending struct {
	CardID         int64           `json:"card_id"`
	Date           string          `json:"date"`
	Timezone       string          `json:"timezone"`
	DailyLimit     decimal.Decimal `json:"daily_limit"`
	SpentToday     decimal.Decimal `json:"spent_today"`
	RemainingLimit decimal.Decimal `json:"remaining_limit"`
}

// CardSpendingLimiter enforces the per-card daily limit. The window is the
// local calendar day of the card's timezone; nothing is kept outside the
// store, so an aborted charge leaves no trace in the window.
type CardSpendingLimiter struct {
	reader    store.Reader
	defaultTZ *time.Location
	log       zerolog.Logger
}

func NewCardSpendingLimiter(reader store.Reader, defaultTZ *time.Location, log zerolog.Logger) *CardSpendingLimiter {
	if defaultTZ == nil {
		defaultTZ = time.UTC
	}
	return &CardSpendingLimiter{reader: reader, defaultTZ: defaultTZ, log: log}
}

// CheckAndReserve rejects the charge if it would take the card's spending
// for the day past its limit. The sum is read through tx, so the charge
// entry appended to the same tx is what reserves the amount.
func (l *CardSpendingLimiter) CheckAndReserve(ctx context.Context, tx store.Tx, card *models.Card, amount decimal.Decimal, now time.Time) error {
	from, to, _ := l.window(card, now)

	// to is next midnight, not now: entries are never dated after the
	// committing clock, so this is [midnight, now] and also counts charges
	// stamped at the same instant as now.
	spent, err := tx.SumCardCharges(ctx, card.ID, from, to)
	if err != nil {
		return fmt.Errorf("%w: sum card charges: %w", ErrStoreFault, err)
	}

	if spent.Add(amount).GreaterThan(card.DailyLimit) {
		return fmt.Errorf("%w: card %d spent %s of %s today, charge of %s refused",
			ErrDailyLimitExceeded, card.ID, spent.StringFixed(2), card.DailyLimit.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

// DailySpending reports the card's window without taking any lock.
func (l *CardSpendingLimiter) DailySpending(ctx context.Context, card *models.Card, now time.Time) (*DailySpending, error) {
	from, to, loc := l.window(card, now)

	spent, err := l.reader.SumCardCharges(ctx, card.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: sum card charges: %w", ErrStoreFault, err)
	}

	remaining := card.DailyLimit.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return &DailySpending{
		CardID:         card.ID,
		Date:           from.Format(time.DateOnly),
		Timezone:       loc.String(),
		DailyLimit:     card.DailyLimit,
		SpentToday:     spent,
		RemainingLimit: remaining,
	}, nil
}

// CardDailySpending looks the card up and reports its window.
func (l *CardSpendingLimiter) CardDailySpending(ctx context.Context, cardID int64, now time.Time) (*DailySpending, error) {
	card, err := l.reader.GetCard(ctx, cardID)
	if err != nil {
		return nil, storeError(err, ErrCardNotFound, fmt.Sprintf("card %d", cardID))
	}
	return l.DailySpending(ctx, card, now)
}

// window returns the local day containing now as [midnight, next midnight).
func (l *CardSpendingLimiter) window(card *models.Card, now time.Time) (time.Time, time.Time, *time.Location) {
	loc := l.location(card)
	local := now.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, 1), loc
}

func (l *CardSpendingLimiter) location(card *models.Card) *time.Location {
	if card.Timezone == "" {
		return l.defaultTZ
	}
	loc, err := time.LoadLocation(card.Timezone)
	if err != nil {
		l.log.Warn().Err(err).Int64("card_id", card.ID).Str("timezone", card.Timezone).
			Str("fallback", l.defaultTZ.String()).Msg("Unknown card timezone, using default")
		return l.defaultTZ
	}
	return loc
}
