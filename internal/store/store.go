// Package store holds the transactional collaborator behind the ledger
// engine: account and card records plus the append-only ledger entry table.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("optimistic lock failed")
	ErrLockTimeout     = errors.New("lock wait timeout")
	ErrDuplicate       = errors.New("duplicate record")
	// ErrDuplicateReversal reports a second entry reversing the same entry.
	ErrDuplicateReversal = errors.New("entry already has a reversal")
	ErrTxDone            = errors.New("transaction already committed or rolled back")
)

// Reader is the non-locking read side shared by Store and Tx.
type Reader interface {
	GetCard(ctx context.Context, id int64) (*models.Card, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, filter models.EntryFilter) ([]models.LedgerEntry, error)
	// SumCardCharges totals card_charge entries for the card in [from, to).
	SumCardCharges(ctx context.Context, cardID int64, from, to time.Time) (decimal.Decimal, error)
}

// Store opens transactional scopes. Everything written through a Tx becomes
// visible to other readers at Commit, all at once, or never.
type Store interface {
	Reader
	Begin(ctx context.Context) (Tx, error)
}

type Tx interface {
	Reader

	// GetAccount returns the current record, locking it for the rest of the
	// transaction where the backend supports row locks.
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	// ApplyDelta adds delta to the balance if the record is still at
	// expectedVersion and returns the updated record.
	ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal, expectedVersion int64) (*models.Account, error)
	SetAccountStatus(ctx context.Context, id int64, status models.AccountStatus, expectedVersion int64) (*models.Account, error)
	SetCardStatus(ctx context.Context, id int64, status models.CardStatus) (*models.Card, error)
	SetCardDailyLimit(ctx context.Context, id int64, limit decimal.Decimal) (*models.Card, error)

	// NextEntrySequence returns a number no other entry has received or will
	// receive, committed or not.
	NextEntrySequence(ctx context.Context) (int64, error)
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error
	// FindReversal returns the entry reversing entryID, or ErrNotFound.
	FindReversal(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error)

	Commit() error
	Rollback() error
}
