package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/ruralpay/corebank/internal/lease"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, event AuditEvent) {
	m.Called(ctx, event)
}

func auditState(state OperationState, eventType string) any {
	return mock.MatchedBy(func(e AuditEvent) bool {
		return e.State == state && e.EventType == eventType
	})
}

// testClock is a settable Clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{t: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// faultyStore commits nothing and reports commitErr instead.
type faultyStore struct {
	*store.MemoryStore
	commitErr error
}

func (s *faultyStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.MemoryStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{Tx: tx, err: s.commitErr}, nil
}

type faultyTx struct {
	store.Tx
	err error
}

func (tx *faultyTx) Commit() error {
	tx.Tx.Rollback()
	return tx.err
}

type testEngine struct {
	mem          *store.MemoryStore
	leases       *lease.Local
	clock        *testClock
	audit        *MockAuditRecorder
	ledger       *LedgerLog
	limiter      *CardSpendingLimiter
	orchestrator *TransferOrchestrator
	controls     *AccountControls
}

var testNow = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *testEngine {
	mem := store.NewMemoryStore()
	return newTestEngineOn(t, mem, mem)
}

// newTestEngineOn wires the engine against st while seeding through mem.
func newTestEngineOn(t *testing.T, st store.Store, mem *store.MemoryStore) *testEngine {
	t.Helper()

	audit := &MockAuditRecorder{}
	audit.On("Record", mock.Anything, mock.Anything).Return()

	e := &testEngine{
		mem:    mem,
		leases: lease.NewLocal(),
		clock:  newTestClock(testNow),
		audit:  audit,
		ledger: NewLedgerLog(st),
	}
	log := zerolog.Nop()
	timeouts := Timeouts{Lease: 5 * time.Second, Commit: 5 * time.Second}

	e.limiter = NewCardSpendingLimiter(st, time.UTC, log)
	e.orchestrator = NewTransferOrchestrator(st, e.leases, e.ledger, NewBalanceGuard(), e.limiter, e.clock, audit, timeouts, log)
	e.controls = NewAccountControls(st, e.leases, e.clock, audit, timeouts, log)
	return e
}

func (e *testEngine) withLeaseTimeout(d time.Duration) *testEngine {
	e.orchestrator.runner.timeouts.Lease = d
	e.controls.runner.timeouts.Lease = d
	return e
}

func (e *testEngine) account(t *testing.T, balance string, opts ...func(*models.Account)) int64 {
	t.Helper()
	acct := models.Account{OwnerID: 1, Balance: decimal.RequireFromString(balance)}
	for _, opt := range opts {
		opt(&acct)
	}
	created, err := e.mem.CreateAccount(acct)
	require.NoError(t, err)
	return created.ID
}

func (e *testEngine) card(t *testing.T, accountID int64, limit string, opts ...func(*models.Card)) int64 {
	t.Helper()
	card := models.Card{
		AccountID:  accountID,
		Status:     models.CardStatusActive,
		DailyLimit: decimal.RequireFromString(limit),
	}
	for _, opt := range opts {
		opt(&card)
	}
	created, err := e.mem.CreateCard(card)
	require.NoError(t, err)
	return created.ID
}

func (e *testEngine) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	acct, err := e.mem.Account(id)
	require.NoError(t, err)
	return acct.Balance
}

func withCurrency(c string) func(*models.Account) {
	return func(a *models.Account) { a.Currency = c }
}

func withStatus(s models.AccountStatus) func(*models.Account) {
	return func(a *models.Account) { a.Status = s }
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
