package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AuditEvent describes the terminal state of one engine operation.
type AuditEvent struct {
	Timestamp            time.Time
	EventType            string
	State                OperationState
	EntryID              uuid.UUID
	Reference            string
	SourceAccountID      int64
	DestinationAccountID int64
	CardID               int64
	Amount               decimal.Decimal
	Currency             string
	Err                  error
	Duration             time.Duration
}

type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent)
}

// AuditLogger writes audit events as structured log lines.
type AuditLogger struct {
	log zerolog.Logger
}

func NewAuditLogger(log zerolog.Logger) *AuditLogger {
	return &AuditLogger{log: log.With().Str("component", "audit").Logger()}
}

func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	level := zerolog.InfoLevel
	switch event.State {
	case StateRejected:
		level = zerolog.WarnLevel
	case StateAborted:
		level = zerolog.ErrorLevel
	}

	e := a.log.WithLevel(level).
		Time("event_time", event.Timestamp).
		Str("event_type", event.EventType).
		Str("state", string(event.State)).
		Dur("duration", event.Duration)

	if event.EntryID != uuid.Nil {
		e = e.Str("entry_id", event.EntryID.String()).Str("reference", event.Reference)
	}
	if event.SourceAccountID != 0 {
		e = e.Int64("source_account_id", event.SourceAccountID)
	}
	if event.DestinationAccountID != 0 {
		e = e.Int64("destination_account_id", event.DestinationAccountID)
	}
	if event.CardID != 0 {
		e = e.Int64("card_id", event.CardID)
	}
	if !event.Amount.IsZero() {
		e = e.Str("amount", event.Amount.StringFixed(2)).Str("currency", event.Currency)
	}
	if event.Err != nil {
		e = e.Err(event.Err).Str("code", ErrorCode(event.Err)).Bool("retryable", IsRetryable(event.Err))
	}
	e.Msg("AUDIT")
}
