package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/ruralpay/corebank/internal/lease"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/store"
	"github.com/shopspring/decimal"
)

// OperationState is the lifecycle position of one Execute call.
type OperationState string

const (
	StateReceived   OperationState = "received"
	StateValidating OperationState = "validating"
	StateRejected   OperationState = "rejected"
	StateApplying   OperationState = "applying"
	StateCommitted  OperationState = "committed"
	StateAborted    OperationState = "aborted"
)

// Operation is a requested money movement. Build one with Transfer, Deposit,
// Withdrawal or CardCharge.
type Operation struct {
	Type                 models.EntryType
	SourceAccountID      int64
	DestinationAccountID int64
	CardID               int64
	Amount               decimal.Decimal
	// Currency is optional for deposits and withdrawals; empty means the
	// account's own currency. Transfers and card charges always use the
	// currency of the debited account.
	Currency    string
	Description string
	Merchant    string

	reverses *models.LedgerEntry
}

func Transfer(from, to int64, amount decimal.Decimal, description string) Operation {
	return Operation{
		Type:                 models.EntryTypeTransfer,
		SourceAccountID:      from,
		DestinationAccountID: to,
		Amount:               amount,
		Description:          description,
	}
}

func Deposit(to int64, amount decimal.Decimal, currency, description string) Operation {
	return Operation{
		Type:                 models.EntryTypeDeposit,
		DestinationAccountID: to,
		Amount:               amount,
		Currency:             strings.ToUpper(currency),
		Description:          description,
	}
}

func Withdrawal(from int64, amount decimal.Decimal, currency, description string) Operation {
	return Operation{
		Type:            models.EntryTypeWithdrawal,
		SourceAccountID: from,
		Amount:          amount,
		Currency:        strings.ToUpper(currency),
		Description:     description,
	}
}

func CardCharge(cardID int64, amount decimal.Decimal, merchant, description string) Operation {
	return Operation{
		Type:        models.EntryTypeCardCharge,
		CardID:      cardID,
		Amount:      amount,
		Merchant:    merchant,
		Description: description,
	}
}

func (op *Operation) validate() error {
	if err := validateAmount(op.Amount); err != nil {
		return err
	}

	switch op.Type {
	case models.EntryTypeTransfer:
		if op.SourceAccountID <= 0 || op.DestinationAccountID <= 0 {
			return fmt.Errorf("%w: transfer needs source and destination accounts", ErrInvalidOperation)
		}
		if op.SourceAccountID == op.DestinationAccountID {
			return fmt.Errorf("%w: account %d", ErrSameAccount, op.SourceAccountID)
		}
	case models.EntryTypeDeposit:
		if op.DestinationAccountID <= 0 || op.SourceAccountID != 0 {
			return fmt.Errorf("%w: deposit needs exactly a destination account", ErrInvalidOperation)
		}
	case models.EntryTypeWithdrawal:
		if op.SourceAccountID <= 0 || op.DestinationAccountID != 0 {
			return fmt.Errorf("%w: withdrawal needs exactly a source account", ErrInvalidOperation)
		}
	case models.EntryTypeCardCharge:
		if op.CardID <= 0 || op.DestinationAccountID != 0 {
			return fmt.Errorf("%w: card charge needs a card", ErrInvalidOperation)
		}
	default:
		return fmt.Errorf("%w: unknown operation type %q", ErrInvalidOperation, op.Type)
	}

	if op.Currency != "" && len(op.Currency) != 3 {
		return fmt.Errorf("%w: currency %q", ErrInvalidOperation, op.Currency)
	}
	return nil
}

// TransferOrchestrator executes money movements. Each operation holds the
// leases of the accounts it touches, re-reads them inside one store
// transaction, validates, applies the deltas and appends exactly one ledger
// entry, or changes nothing.
type TransferOrchestrator struct {
	runner  *leasedRunner
	store   store.Store
	ledger  *LedgerLog
	guard   *BalanceGuard
	limiter *CardSpendingLimiter
	clock   Clock
	audit   AuditRecorder
	log     zerolog.Logger
}

func NewTransferOrchestrator(
	st store.Store,
	leases lease.Manager,
	ledger *LedgerLog,
	guard *BalanceGuard,
	limiter *CardSpendingLimiter,
	clock Clock,
	audit AuditRecorder,
	timeouts Timeouts,
	log zerolog.Logger,
) *TransferOrchestrator {
	return &TransferOrchestrator{
		runner:  &leasedRunner{store: st, leases: leases, timeouts: timeouts, log: log},
		store:   st,
		ledger:  ledger,
		guard:   guard,
		limiter: limiter,
		clock:   clock,
		audit:   audit,
		log:     log,
	}
}

// operationRun tracks one Execute call through its states.
type operationRun struct {
	op    Operation
	state OperationState
	log   zerolog.Logger
}

func (r *operationRun) transition(next OperationState) {
	r.log.Debug().Str("from", string(r.state)).Str("to", string(next)).Msg("Operation state")
	r.state = next
}

// Execute applies op and returns the committed ledger entry. Rejections
// carry one of the engine's sentinel errors; IsRetryable tells whether the
// same request may succeed later.
func (o *TransferOrchestrator) Execute(ctx context.Context, op Operation) (*models.LedgerEntry, error) {
	started := o.clock.Now()
	run := &operationRun{
		op:    op,
		state: StateReceived,
		log:   o.log.With().Str("operation", string(op.Type)).Logger(),
	}

	entry, err := o.execute(ctx, run)

	switch {
	case err == nil:
		run.transition(StateCommitted)
	case run.state == StateApplying || errors.Is(err, ErrStoreFault):
		run.transition(StateAborted)
	default:
		run.transition(StateRejected)
	}

	event := AuditEvent{
		Timestamp:            o.clock.Now(),
		EventType:            string(op.Type),
		State:                run.state,
		SourceAccountID:      run.op.SourceAccountID,
		DestinationAccountID: run.op.DestinationAccountID,
		CardID:               run.op.CardID,
		Amount:               run.op.Amount,
		Currency:             run.op.Currency,
		Err:                  err,
	}
	if entry != nil {
		event.EntryID = entry.ID
		event.Reference = entry.Reference
		event.Currency = entry.Currency
	}
	event.Duration = event.Timestamp.Sub(started)
	o.audit.Record(ctx, event)

	return entry, err
}

func (o *TransferOrchestrator) execute(ctx context.Context, run *operationRun) (*models.LedgerEntry, error) {
	run.transition(StateValidating)
	op := &run.op

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if err := op.validate(); err != nil {
		return nil, err
	}

	if op.Type == models.EntryTypeCardCharge {
		card, err := o.store.GetCard(ctx, op.CardID)
		if err != nil {
			return nil, storeError(err, ErrCardNotFound, fmt.Sprintf("card %d", op.CardID))
		}
		op.SourceAccountID = card.AccountID
	}

	var entry *models.LedgerEntry
	err := o.runner.run(ctx, []int64{op.SourceAccountID, op.DestinationAccountID}, func(ctx context.Context, tx store.Tx) error {
		var err error
		entry, err = o.apply(ctx, tx, run)
		return err
	})
	if err != nil {
		if op.reverses != nil && errors.Is(err, store.ErrDuplicateReversal) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyReversed, op.reverses.Reference)
		}
		return nil, err
	}
	return entry, nil
}

// apply runs with the leases held and tx open.
func (o *TransferOrchestrator) apply(ctx context.Context, tx store.Tx, run *operationRun) (*models.LedgerEntry, error) {
	op := &run.op
	now := o.clock.Now()

	// row locks follow the same ascending order as the leases
	accounts := make(map[int64]*models.Account, 2)
	for _, id := range orderedIDs([]int64{op.SourceAccountID, op.DestinationAccountID}) {
		acct, err := tx.GetAccount(ctx, id)
		if err != nil {
			return nil, storeError(err, ErrAccountNotFound, fmt.Sprintf("account %d", id))
		}
		accounts[id] = acct
	}
	source, destination := accounts[op.SourceAccountID], accounts[op.DestinationAccountID]

	currency := op.Currency
	if currency == "" || op.Type == models.EntryTypeTransfer || op.Type == models.EntryTypeCardCharge {
		if source != nil {
			currency = source.Currency
		} else {
			currency = destination.Currency
		}
	}
	op.Currency = currency

	if source != nil {
		if err := o.guard.Validate(source, op.Amount, currency, Debit); err != nil {
			return nil, err
		}
	}
	if destination != nil {
		if err := o.guard.Validate(destination, op.Amount, currency, Credit); err != nil {
			return nil, err
		}
	}

	var cardID *int64
	if op.Type == models.EntryTypeCardCharge {
		card, err := tx.GetCard(ctx, op.CardID)
		if err != nil {
			return nil, storeError(err, ErrCardNotFound, fmt.Sprintf("card %d", op.CardID))
		}
		if card.Status != models.CardStatusActive {
			return nil, fmt.Errorf("%w: card %d is %s", ErrCardNotActive, card.ID, card.Status)
		}
		if err := o.limiter.CheckAndReserve(ctx, tx, card, op.Amount, now); err != nil {
			return nil, err
		}
		cardID = &card.ID
	}

	var reverses *uuid.UUID
	if op.reverses != nil {
		_, err := tx.FindReversal(ctx, op.reverses.ID)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w: %s", ErrAlreadyReversed, op.reverses.Reference)
		case !errors.Is(err, store.ErrNotFound):
			return nil, storeError(err, nil, "find reversal")
		}
		reverses = &op.reverses.ID
	}

	run.transition(StateApplying)

	entry := &models.LedgerEntry{
		Type:            op.Type,
		CardID:          cardID,
		Amount:          op.Amount,
		Currency:        currency,
		Description:     op.Description,
		Merchant:        op.Merchant,
		ReversesEntryID: reverses,
	}
	if source != nil {
		updated, err := tx.ApplyDelta(ctx, source.ID, op.Amount.Neg(), source.Version)
		if err != nil {
			return nil, storeError(err, nil, fmt.Sprintf("debit account %d", source.ID))
		}
		entry.SourceAccountID = &updated.ID
		entry.SourceBalanceAfter = &updated.Balance
	}
	if destination != nil {
		updated, err := tx.ApplyDelta(ctx, destination.ID, op.Amount, destination.Version)
		if err != nil {
			return nil, storeError(err, nil, fmt.Sprintf("credit account %d", destination.ID))
		}
		entry.DestinationAccountID = &updated.ID
		entry.DestinationBalanceAfter = &updated.Balance
	}

	if err := o.ledger.Append(ctx, tx, entry, now); err != nil {
		return nil, err
	}
	return entry, nil
}

// Reverse undoes a committed transfer by moving the same amount back from
// its destination to its source. The original entry is left untouched; the
// new entry points at it. An entry can be reversed once.
func (o *TransferOrchestrator) Reverse(ctx context.Context, entryID uuid.UUID, description string) (*models.LedgerEntry, error) {
	original, err := o.ledger.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if original.Type != models.EntryTypeTransfer || original.ReversesEntryID != nil ||
		original.SourceAccountID == nil || original.DestinationAccountID == nil {
		return nil, fmt.Errorf("%w: %s is a %s entry", ErrNotReversible, original.Reference, original.Type)
	}

	if description == "" {
		description = "Reversal of " + original.Reference
	}
	op := Transfer(*original.DestinationAccountID, *original.SourceAccountID, original.Amount, description)
	op.reverses = original
	return o.Execute(ctx, op)
}
