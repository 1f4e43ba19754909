package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccountStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to AccountStatus
		allowed  bool
	}{
		{AccountStatusActive, AccountStatusFrozen, true},
		{AccountStatusActive, AccountStatusClosed, true},
		{AccountStatusFrozen, AccountStatusClosed, true},
		{AccountStatusFrozen, AccountStatusActive, false},
		{AccountStatusClosed, AccountStatusActive, false},
		{AccountStatusClosed, AccountStatusFrozen, false},
		{AccountStatusActive, AccountStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCardStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, CardStatusInactive.CanTransitionTo(CardStatusActive))
	assert.True(t, CardStatusActive.CanTransitionTo(CardStatusFrozen))
	assert.True(t, CardStatusFrozen.CanTransitionTo(CardStatusActive))
	assert.False(t, CardStatusActive.CanTransitionTo(CardStatusInactive))
	assert.False(t, CardStatusInactive.CanTransitionTo(CardStatusFrozen))
}

func TestAccountType_AllowsOverdraft(t *testing.T) {
	for _, typ := range []AccountType{AccountTypeChecking, AccountTypeSavings, AccountTypeBusiness} {
		assert.True(t, typ.Valid())
		assert.False(t, typ.AllowsOverdraft())
	}
	assert.False(t, AccountType("credit_line").Valid())
}

func TestLedgerEntry_Deltas(t *testing.T) {
	src, dst := int64(1), int64(2)
	amount := decimal.RequireFromString("12.50")

	t.Run("transfer debits source and credits destination", func(t *testing.T) {
		e := &LedgerEntry{Type: EntryTypeTransfer, SourceAccountID: &src, DestinationAccountID: &dst, Amount: amount}
		deltas := e.Deltas()
		assert.Len(t, deltas, 2)
		assert.Equal(t, src, deltas[0].AccountID)
		assert.True(t, deltas[0].Delta.Equal(amount.Neg()))
		assert.Equal(t, dst, deltas[1].AccountID)
		assert.True(t, deltas[1].Delta.Equal(amount))
	})

	t.Run("deposit only credits", func(t *testing.T) {
		e := &LedgerEntry{Type: EntryTypeDeposit, DestinationAccountID: &dst, Amount: amount}
		deltas := e.Deltas()
		assert.Len(t, deltas, 1)
		assert.True(t, deltas[0].Delta.Equal(amount))
		assert.False(t, e.Touches(src))
	})
}

func TestEntryFilter_Matches(t *testing.T) {
	acct := int64(7)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := &LedgerEntry{
		ID:                   uuid.New(),
		Type:                 EntryTypeDeposit,
		DestinationAccountID: &acct,
		Amount:               decimal.RequireFromString("50.00"),
		CreatedAt:            now,
	}

	min := decimal.RequireFromString("10")
	max := decimal.RequireFromString("40")
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	assert.True(t, EntryFilter{AccountID: acct}.Matches(e))
	assert.False(t, EntryFilter{AccountID: 8}.Matches(e))
	assert.True(t, EntryFilter{AccountID: acct, MinAmount: &min}.Matches(e))
	assert.False(t, EntryFilter{AccountID: acct, MaxAmount: &max}.Matches(e))
	assert.True(t, EntryFilter{AccountID: acct, StartDate: &before, EndDate: &after}.Matches(e))
	assert.False(t, EntryFilter{AccountID: acct, StartDate: &after}.Matches(e))
	assert.False(t, EntryFilter{AccountID: acct, Type: EntryTypeWithdrawal}.Matches(e))
}
