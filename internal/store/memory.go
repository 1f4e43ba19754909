package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store. Transactions stage their writes and
// publish them under a single lock at Commit after re-checking the version of
// every account they touched, so readers never observe half a commit.
// Data is lost on restart.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[int64]models.Account
	cards         map[int64]models.Card
	entries       []models.LedgerEntry
	nextAccountID int64
	nextCardID    int64
	entrySeq      atomic.Int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]models.Account),
		cards:    make(map[int64]models.Card),
	}
}

// CreateAccount inserts an account, assigning an id when none is set.
// Account creation belongs to the CRUD layer; this is its in-memory stand-in.
func (s *MemoryStore) CreateAccount(acct models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == 0 {
		s.nextAccountID++
		acct.ID = s.nextAccountID
	} else if acct.ID > s.nextAccountID {
		s.nextAccountID = acct.ID
	}
	if _, exists := s.accounts[acct.ID]; exists {
		return models.Account{}, fmt.Errorf("account %d: %w", acct.ID, ErrDuplicate)
	}
	if acct.Status == "" {
		acct.Status = models.AccountStatusActive
	}
	if acct.Type == "" {
		acct.Type = models.AccountTypeChecking
	}
	if acct.Currency == "" {
		acct.Currency = "USD"
	}
	if acct.Version == 0 {
		acct.Version = 1
	}
	acct.UpdatedAt = time.Now().UTC()
	s.accounts[acct.ID] = acct
	return acct, nil
}

// CreateCard inserts a card linked to an existing account.
func (s *MemoryStore) CreateCard(card models.Card) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[card.AccountID]; !ok {
		return models.Card{}, fmt.Errorf("account %d: %w", card.AccountID, ErrNotFound)
	}
	if card.ID == 0 {
		s.nextCardID++
		card.ID = s.nextCardID
	} else if card.ID > s.nextCardID {
		s.nextCardID = card.ID
	}
	if card.Status == "" {
		card.Status = models.CardStatusInactive
	}
	if card.DailyLimit.IsZero() {
		card.DailyLimit = models.DefaultDailyLimit
	}
	card.UpdatedAt = time.Now().UTC()
	s.cards[card.ID] = card
	return card, nil
}

// Account returns a committed snapshot.
func (s *MemoryStore) Account(id int64) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	return acct, nil
}

// EntryCount returns the number of committed ledger entries.
func (s *MemoryStore) EntryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &card, nil
}

func (s *MemoryStore) GetEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findEntry(s.entries, func(e *models.LedgerEntry) bool { return e.ID == id })
}

func (s *MemoryStore) ListEntries(ctx context.Context, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEntries(filter, s.entries), nil
}

func (s *MemoryStore) SumCardCharges(ctx context.Context, cardID int64, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sumCardCharges(cardID, from, to, s.entries), nil
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{
		s:        s,
		accounts: make(map[int64]models.Account),
		observed: make(map[int64]int64),
		cards:    make(map[int64]models.Card),
	}, nil
}

type memTx struct {
	s        *MemoryStore
	accounts map[int64]models.Account
	// observed holds the committed version each account had when this
	// transaction first read it.
	observed map[int64]int64
	cards    map[int64]models.Card
	entries  []models.LedgerEntry
	done     bool
}

func (tx *memTx) account(id int64) (models.Account, error) {
	if tx.done {
		return models.Account{}, ErrTxDone
	}
	if acct, ok := tx.accounts[id]; ok {
		return acct, nil
	}
	tx.s.mu.RLock()
	acct, ok := tx.s.accounts[id]
	tx.s.mu.RUnlock()
	if !ok {
		return models.Account{}, ErrNotFound
	}
	if _, seen := tx.observed[id]; !seen {
		tx.observed[id] = acct.Version
	}
	return acct, nil
}

func (tx *memTx) card(id int64) (models.Card, error) {
	if tx.done {
		return models.Card{}, ErrTxDone
	}
	if card, ok := tx.cards[id]; ok {
		return card, nil
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	card, ok := tx.s.cards[id]
	if !ok {
		return models.Card{}, ErrNotFound
	}
	return card, nil
}

func (tx *memTx) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	acct, err := tx.account(id)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (tx *memTx) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal, expectedVersion int64) (*models.Account, error) {
	acct, err := tx.account(id)
	if err != nil {
		return nil, err
	}
	if acct.Version != expectedVersion {
		return nil, fmt.Errorf("account %d: %w", id, ErrVersionConflict)
	}
	acct.Balance = acct.Balance.Add(delta)
	acct.Version++
	acct.UpdatedAt = time.Now().UTC()
	tx.accounts[id] = acct
	return &acct, nil
}

func (tx *memTx) SetAccountStatus(ctx context.Context, id int64, status models.AccountStatus, expectedVersion int64) (*models.Account, error) {
	acct, err := tx.account(id)
	if err != nil {
		return nil, err
	}
	if acct.Version != expectedVersion {
		return nil, fmt.Errorf("account %d: %w", id, ErrVersionConflict)
	}
	acct.Status = status
	acct.Version++
	acct.UpdatedAt = time.Now().UTC()
	tx.accounts[id] = acct
	return &acct, nil
}

func (tx *memTx) SetCardStatus(ctx context.Context, id int64, status models.CardStatus) (*models.Card, error) {
	card, err := tx.card(id)
	if err != nil {
		return nil, err
	}
	card.Status = status
	card.UpdatedAt = time.Now().UTC()
	tx.cards[id] = card
	return &card, nil
}

func (tx *memTx) SetCardDailyLimit(ctx context.Context, id int64, limit decimal.Decimal) (*models.Card, error) {
	card, err := tx.card(id)
	if err != nil {
		return nil, err
	}
	card.DailyLimit = limit
	card.UpdatedAt = time.Now().UTC()
	tx.cards[id] = card
	return &card, nil
}

func (tx *memTx) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	card, err := tx.card(id)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (tx *memTx) NextEntrySequence(ctx context.Context) (int64, error) {
	if tx.done {
		return 0, ErrTxDone
	}
	return tx.s.entrySeq.Add(1), nil
}

func (tx *memTx) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if tx.done {
		return ErrTxDone
	}
	tx.entries = append(tx.entries, cloneEntry(*entry))
	return nil
}

func (tx *memTx) visibleEntries() []models.LedgerEntry {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	all := make([]models.LedgerEntry, 0, len(tx.s.entries)+len(tx.entries))
	all = append(all, tx.s.entries...)
	return append(all, tx.entries...)
}

func (tx *memTx) GetEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	return findEntry(tx.visibleEntries(), func(e *models.LedgerEntry) bool { return e.ID == id })
}

func (tx *memTx) FindReversal(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error) {
	return findEntry(tx.visibleEntries(), func(e *models.LedgerEntry) bool {
		return e.ReversesEntryID != nil && *e.ReversesEntryID == entryID
	})
}

func (tx *memTx) ListEntries(ctx context.Context, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	return listEntries(filter, tx.visibleEntries()), nil
}

func (tx *memTx) SumCardCharges(ctx context.Context, cardID int64, from, to time.Time) (decimal.Decimal, error) {
	return sumCardCharges(cardID, from, to, tx.visibleEntries()), nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range tx.accounts {
		if s.accounts[id].Version != tx.observed[id] {
			return fmt.Errorf("account %d: %w", id, ErrVersionConflict)
		}
	}
	for i := range tx.entries {
		staged := &tx.entries[i]
		for j := range s.entries {
			committed := &s.entries[j]
			if committed.ID == staged.ID || committed.Reference == staged.Reference {
				return fmt.Errorf("ledger entry %s: %w", staged.ID, ErrDuplicate)
			}
			if staged.ReversesEntryID != nil && committed.ReversesEntryID != nil &&
				*staged.ReversesEntryID == *committed.ReversesEntryID {
				return fmt.Errorf("reversal of %s: %w", *staged.ReversesEntryID, ErrDuplicateReversal)
			}
		}
	}

	for id, acct := range tx.accounts {
		s.accounts[id] = acct
	}
	for id, card := range tx.cards {
		s.cards[id] = card
	}
	s.entries = append(s.entries, tx.entries...)
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	return nil
}

func findEntry(entries []models.LedgerEntry, match func(*models.LedgerEntry) bool) (*models.LedgerEntry, error) {
	for i := range entries {
		if match(&entries[i]) {
			e := cloneEntry(entries[i])
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func listEntries(filter models.EntryFilter, entries []models.LedgerEntry) []models.LedgerEntry {
	var out []models.LedgerEntry
	for i := range entries {
		if filter.Matches(&entries[i]) {
			out = append(out, cloneEntry(entries[i]))
		}
	}
	// newest first
	slices.SortStableFunc(out, func(a, b models.LedgerEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func sumCardCharges(cardID int64, from, to time.Time, entries []models.LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		e := &entries[i]
		if e.Type != models.EntryTypeCardCharge || e.CardID == nil || *e.CardID != cardID {
			continue
		}
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total
}

// cloneEntry copies the pointer fields so callers cannot reach stored entries.
func cloneEntry(e models.LedgerEntry) models.LedgerEntry {
	if e.SourceAccountID != nil {
		v := *e.SourceAccountID
		e.SourceAccountID = &v
	}
	if e.DestinationAccountID != nil {
		v := *e.DestinationAccountID
		e.DestinationAccountID = &v
	}
	if e.CardID != nil {
		v := *e.CardID
		e.CardID = &v
	}
	if e.ReversesEntryID != nil {
		v := *e.ReversesEntryID
		e.ReversesEntryID = &v
	}
	if e.SourceBalanceAfter != nil {
		v := *e.SourceBalanceAfter
		e.SourceBalanceAfter = &v
	}
	if e.DestinationBalanceAfter != nil {
		v := *e.DestinationBalanceAfter
		e.DestinationBalanceAfter = &v
	}
	return e
}
