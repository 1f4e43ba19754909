package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id           BIGSERIAL PRIMARY KEY,
		owner_id     BIGINT NOT NULL,
		account_type TEXT NOT NULL CHECK (account_type IN ('checking', 'savings', 'business')),
		currency     CHAR(3) NOT NULL DEFAULT 'USD',
		balance      NUMERIC(15, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		status       TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'frozen', 'closed')),
		version      BIGINT NOT NULL DEFAULT 1,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id          BIGSERIAL PRIMARY KEY,
		account_id  BIGINT NOT NULL REFERENCES accounts (id),
		status      TEXT NOT NULL DEFAULT 'inactive' CHECK (status IN ('inactive', 'active', 'frozen')),
		daily_limit NUMERIC(15, 2) NOT NULL DEFAULT 1000.00 CHECK (daily_limit >= 0),
		timezone    TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// feeds the numeric suffix of entry references
	`CREATE SEQUENCE IF NOT EXISTS ledger_entry_seq`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id                        UUID PRIMARY KEY,
		reference                 TEXT NOT NULL UNIQUE,
		entry_type                TEXT NOT NULL CHECK (entry_type IN ('transfer', 'deposit', 'withdrawal', 'card_charge')),
		source_account_id         BIGINT REFERENCES accounts (id),
		destination_account_id    BIGINT REFERENCES accounts (id),
		card_id                   BIGINT REFERENCES cards (id),
		amount                    NUMERIC(15, 2) NOT NULL CHECK (amount > 0),
		currency                  CHAR(3) NOT NULL,
		description               TEXT NOT NULL DEFAULT '',
		merchant                  TEXT NOT NULL DEFAULT '',
		reverses_entry_id         UUID CONSTRAINT ledger_entries_reverses_entry_id_key UNIQUE REFERENCES ledger_entries (id),
		source_balance_after      NUMERIC(15, 2),
		destination_balance_after NUMERIC(15, 2),
		created_at                TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_source_idx ON ledger_entries (source_account_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_destination_idx ON ledger_entries (destination_account_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_card_window_idx ON ledger_entries (card_id, created_at) WHERE entry_type = 'card_charge'`,
	// ledger entries are append-only
	`CREATE OR REPLACE RULE ledger_entries_no_update AS ON UPDATE TO ledger_entries DO INSTEAD NOTHING`,
	`CREATE OR REPLACE RULE ledger_entries_no_delete AS ON DELETE TO ledger_entries DO INSTEAD NOTHING`,
}

// Migrate creates the engine's tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}
