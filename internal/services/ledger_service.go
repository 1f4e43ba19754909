package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/store"
	"github.com/shopspring/decimal"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// LedgerLog is the append-only record of applied movements. Entries are
// written only inside the transaction that changes the balances and are
// never updated or deleted afterwards.
type LedgerLog struct {
	reader store.Reader
}

func NewLedgerLog(reader store.Reader) *LedgerLog {
	return &LedgerLog{reader: reader}
}

// Append stamps the entry with an id, a reference and the commit time and
// stages it in tx.
func (l *LedgerLog) Append(ctx context.Context, tx store.Tx, entry *models.LedgerEntry, at time.Time) error {
	if !entry.Type.Valid() {
		return fmt.Errorf("%w: entry type %q", ErrInvalidOperation, entry.Type)
	}
	if len(entry.Deltas()) == 0 {
		return fmt.Errorf("%w: entry moves no money", ErrInvalidOperation)
	}
	if err := validateAmount(entry.Amount); err != nil {
		return err
	}

	seq, err := tx.NextEntrySequence(ctx)
	if err != nil {
		return fmt.Errorf("%w: reference sequence: %w", ErrStoreFault, err)
	}
	entry.ID = uuid.New()
	entry.Reference = NewReference(at, seq)
	entry.CreatedAt = at.UTC()

	if err := tx.AppendEntry(ctx, entry); err != nil {
		return fmt.Errorf("%w: append ledger entry: %w", ErrStoreFault, err)
	}
	return nil
}

func (l *LedgerLog) Get(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	entry, err := l.reader.GetEntry(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get ledger entry: %w", ErrStoreFault, err)
	}
	return entry, nil
}

// History returns the account's entries newest first.
func (l *LedgerLog) History(ctx context.Context, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: entry type %q", ErrInvalidOperation, filter.Type)
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidOperation)
	}

	entries, err := l.reader.ListEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: list ledger entries: %w", ErrStoreFault, err)
	}
	return entries, nil
}

// Replay folds entries into per-account balance changes. Starting from zero
// balances, replaying an account's full log reproduces its balance.
func Replay(entries []models.LedgerEntry) map[int64]decimal.Decimal {
	balances := make(map[int64]decimal.Decimal)
	for i := range entries {
		for _, d := range entries[i].Deltas() {
			balances[d.AccountID] = balances[d.AccountID].Add(d.Delta)
		}
	}
	return balances
}

// NewReference formats a human-readable entry reference such as
// TXN-20240115093000-042117. The suffix is the store's entry sequence number,
// so two entries never share a reference however close together they commit.
// It widens past six digits rather than wrapping.
func NewReference(at time.Time, seq int64) string {
	return fmt.Sprintf("TXN-%s-%06d", at.UTC().Format("20060102150405"), seq)
}
