package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/shopspring/decimal"
)

const (
	accountColumns = "id, owner_id, account_type, currency, balance, status, version, updated_at"
	cardColumns    = "id, account_id, status, daily_limit, timezone, updated_at"
	entryColumns   = "id, reference, entry_type, source_account_id, destination_account_id, card_id, " +
		"amount, currency, description, merchant, reverses_entry_id, " +
		"source_balance_after, destination_balance_after, created_at"
)

// Postgres error codes the engine reacts to.
const (
	pqLockNotAvailable     = "55P03"
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"

	reversalConstraint = "ledger_entries_reverses_entry_id_key"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// PostgresStore implements Store on database/sql with the lib/pq driver.
// Account reads inside a transaction take row locks (FOR UPDATE) bounded by
// lockTimeout.
type PostgresStore struct {
	pgReader
	db          *sql.DB
	lockTimeout time.Duration
}

func NewPostgresStore(db *sql.DB, lockTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pgReader:    pgReader{q: db},
		db:          db,
		lockTimeout: lockTimeout,
	}
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", mapError(err))
	}

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("set lock timeout: %w", mapError(err))
		}
	}

	return &pgTx{pgReader: pgReader{q: tx}, tx: tx}, nil
}

type pgReader struct {
	q queryer
}

func (r pgReader) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
	return scanCard(row)
}

func (r pgReader) GetEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id)
	return scanEntry(row)
}

func (r pgReader) ListEntries(ctx context.Context, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	query, args := buildListEntriesQuery(filter)
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", mapError(err))
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", mapError(err))
	}
	return entries, nil
}

func (r pgReader) SumCardCharges(ctx context.Context, cardID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE card_id = $1 AND entry_type = $2 AND created_at >= $3 AND created_at < $4`,
		cardID, models.EntryTypeCardCharge, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum card charges: %w", mapError(err))
	}
	return total, nil
}

func buildListEntriesQuery(filter models.EntryFilter) (string, []any) {
	var b strings.Builder
	args := []any{filter.AccountID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	b.WriteString(`SELECT ` + entryColumns + ` FROM ledger_entries WHERE (source_account_id = $1 OR destination_account_id = $1)`)
	if filter.StartDate != nil {
		b.WriteString(" AND created_at >= " + arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		b.WriteString(" AND created_at <= " + arg(*filter.EndDate))
	}
	if filter.Type != "" {
		b.WriteString(" AND entry_type = " + arg(filter.Type))
	}
	if filter.MinAmount != nil {
		b.WriteString(" AND amount >= " + arg(*filter.MinAmount))
	}
	if filter.MaxAmount != nil {
		b.WriteString(" AND amount <= " + arg(*filter.MaxAmount))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		b.WriteString(" OFFSET " + arg(filter.Offset))
	}
	return b.String(), args
}

type pgTx struct {
	pgReader
	tx *sql.Tx
}

func (t *pgTx) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

func (t *pgTx) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal, expectedVersion int64) (*models.Account, error) {
	row := t.tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING `+accountColumns,
		delta, id, expectedVersion)
	acct, err := scanAccount(row)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("account %d: %w", id, ErrVersionConflict)
	}
	return acct, err
}

func (t *pgTx) SetAccountStatus(ctx context.Context, id int64, status models.AccountStatus, expectedVersion int64) (*models.Account, error) {
	row := t.tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING `+accountColumns,
		status, id, expectedVersion)
	acct, err := scanAccount(row)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("account %d: %w", id, ErrVersionConflict)
	}
	return acct, err
}

func (t *pgTx) SetCardStatus(ctx context.Context, id int64, status models.CardStatus) (*models.Card, error) {
	row := t.tx.QueryRowContext(ctx, `
		UPDATE cards SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+cardColumns,
		status, id)
	return scanCard(row)
}

func (t *pgTx) SetCardDailyLimit(ctx context.Context, id int64, limit decimal.Decimal) (*models.Card, error) {
	row := t.tx.QueryRowContext(ctx, `
		UPDATE cards SET daily_limit = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+cardColumns,
		limit, id)
	return scanCard(row)
}

// NextEntrySequence draws from a database sequence, so numbers stay unique
// across engine instances and are never handed out twice after a rollback.
func (t *pgTx) NextEntrySequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := t.tx.QueryRowContext(ctx, `SELECT nextval('ledger_entry_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next entry sequence: %w", mapError(err))
	}
	return seq, nil
}

func (t *pgTx) AppendEntry(ctx context.Context, e *models.LedgerEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.Reference, e.Type,
		nullInt64(e.SourceAccountID), nullInt64(e.DestinationAccountID), nullInt64(e.CardID),
		e.Amount, e.Currency, e.Description, e.Merchant, nullUUID(e.ReversesEntryID),
		nullDecimal(e.SourceBalanceAfter), nullDecimal(e.DestinationBalanceAfter), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", mapError(err))
	}
	return nil
}

func (t *pgTx) FindReversal(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE reverses_entry_id = $1`, entryID)
	return scanEntry(row)
}

func (t *pgTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

func (t *pgTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

func scanAccount(row scanner) (*models.Account, error) {
	var acct models.Account
	err := row.Scan(&acct.ID, &acct.OwnerID, &acct.Type, &acct.Currency, &acct.Balance,
		&acct.Status, &acct.Version, &acct.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &acct, nil
}

func scanCard(row scanner) (*models.Card, error) {
	var card models.Card
	err := row.Scan(&card.ID, &card.AccountID, &card.Status, &card.DailyLimit, &card.Timezone, &card.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &card, nil
}

func scanEntry(row scanner) (*models.LedgerEntry, error) {
	var (
		e                      models.LedgerEntry
		source, dest, card     sql.NullInt64
		reverses               uuid.NullUUID
		sourceAfter, destAfter decimal.NullDecimal
	)
	err := row.Scan(&e.ID, &e.Reference, &e.Type, &source, &dest, &card,
		&e.Amount, &e.Currency, &e.Description, &e.Merchant, &reverses,
		&sourceAfter, &destAfter, &e.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	if source.Valid {
		e.SourceAccountID = &source.Int64
	}
	if dest.Valid {
		e.DestinationAccountID = &dest.Int64
	}
	if card.Valid {
		e.CardID = &card.Int64
	}
	if reverses.Valid {
		e.ReversesEntryID = &reverses.UUID
	}
	if sourceAfter.Valid {
		e.SourceBalanceAfter = &sourceAfter.Decimal
	}
	if destAfter.Valid {
		e.DestinationBalanceAfter = &destAfter.Decimal
	}
	return &e, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullUUID(v *uuid.UUID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *v, Valid: true}
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *v, Valid: true}
}

// mapError translates driver errors into the store's sentinel errors.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqLockNotAvailable:
			return fmt.Errorf("%w: %s", ErrLockTimeout, pqErr.Message)
		case pqUniqueViolation:
			if pqErr.Constraint == reversalConstraint {
				return fmt.Errorf("%w: %s", ErrDuplicateReversal, pqErr.Message)
			}
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Message)
		case pqSerializationFailure, pqDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrVersionConflict, pqErr.Message)
		}
	}
	return err
}
