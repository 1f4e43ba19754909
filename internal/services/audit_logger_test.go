package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/ruralpay/corebank/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogger_Record(t *testing.T) {
	t.Run("committed operation", func(t *testing.T) {
		var buf bytes.Buffer
		audit := NewAuditLogger(logger.NewWithWriter(&buf))

		id := uuid.New()
		audit.Record(context.Background(), AuditEvent{
			Timestamp:            testNow,
			EventType:            "transfer",
			State:                StateCommitted,
			EntryID:              id,
			Reference:            "TXN-20240305120000-000001",
			SourceAccountID:      1,
			DestinationAccountID: 2,
			Amount:               dec("10.5"),
			Currency:             "USD",
		})

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "info", line["level"])
		assert.Equal(t, "audit", line["component"])
		assert.Equal(t, "AUDIT", line["message"])
		assert.Equal(t, "committed", line["state"])
		assert.Equal(t, id.String(), line["entry_id"])
		assert.Equal(t, "10.50", line["amount"])
		assert.EqualValues(t, 1, line["source_account_id"])
		assert.NotContains(t, line, "card_id")
	})

	t.Run("rejected operation carries the code", func(t *testing.T) {
		var buf bytes.Buffer
		audit := NewAuditLogger(logger.NewWithWriter(&buf))

		audit.Record(context.Background(), AuditEvent{
			Timestamp: testNow,
			EventType: "card_charge",
			State:     StateRejected,
			CardID:    7,
			Amount:    dec("25"),
			Currency:  "USD",
			Err:       fmt.Errorf("%w: card 7", ErrDailyLimitExceeded),
		})

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "warn", line["level"])
		assert.Equal(t, "daily_limit_exceeded", line["code"])
		assert.Equal(t, false, line["retryable"])
		assert.NotContains(t, line, "entry_id")
	})

	t.Run("aborted operation logs at error", func(t *testing.T) {
		var buf bytes.Buffer
		audit := NewAuditLogger(logger.NewWithWriter(&buf))

		audit.Record(context.Background(), AuditEvent{
			Timestamp: testNow,
			EventType: "transfer",
			State:     StateAborted,
			Err:       ErrStoreFault,
		})

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "error", line["level"])
		assert.Equal(t, true, line["retryable"])
	})
}
