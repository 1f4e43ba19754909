package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/ruralpay/corebank/internal/lease"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/services"
	"github.com/ruralpay/corebank/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router http.Handler
	mem    *store.MemoryStore
	leases *lease.Local
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mem := store.NewMemoryStore()
	leases := lease.NewLocal()
	clock := services.FixedClock(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))
	log := zerolog.Nop()
	audit := services.NewAuditLogger(log)
	timeouts := services.Timeouts{Lease: 50 * time.Millisecond, Commit: 5 * time.Second}

	ledger := services.NewLedgerLog(mem)
	limiter := services.NewCardSpendingLimiter(mem, time.UTC, log)
	orchestrator := services.NewTransferOrchestrator(mem, leases, ledger, services.NewBalanceGuard(), limiter, clock, audit, timeouts, log)
	controls := services.NewAccountControls(mem, leases, clock, audit, timeouts, log)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		RegisterRoutes(r,
			NewTransferHandler(orchestrator),
			NewLedgerHandler(ledger, orchestrator),
			NewControlsHandler(controls, limiter, clock),
		)
	})
	return &testAPI{router: r, mem: mem, leases: leases}
}

func (a *testAPI) account(t *testing.T, balance string, opts ...func(*models.Account)) int64 {
	t.Helper()
	acct := models.Account{OwnerID: 1, Balance: decimal.RequireFromString(balance)}
	for _, opt := range opts {
		opt(&acct)
	}
	created, err := a.mem.CreateAccount(acct)
	require.NoError(t, err)
	return created.ID
}

func (a *testAPI) card(t *testing.T, accountID int64, limit string) int64 {
	t.Helper()
	card, err := a.mem.CreateCard(models.Card{
		AccountID:  accountID,
		Status:     models.CardStatusActive,
		DailyLimit: decimal.RequireFromString(limit),
	})
	require.NoError(t, err)
	return card.ID
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) services.ErrorResponse {
	t.Helper()
	var resp services.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeEntry(t *testing.T, w *httptest.ResponseRecorder) models.LedgerEntry {
	t.Helper()
	var entry models.LedgerEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	return entry
}

func TestTransferHandler_CreateTransfer(t *testing.T) {
	api := newTestAPI(t)
	from := api.account(t, "100")
	to := api.account(t, "0")
	frozen := api.account(t, "100", func(a *models.Account) { a.Status = models.AccountStatusFrozen })

	t.Run("created", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/transfers",
			fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": "40.50", "description": "rent"}`, from, to))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		entry := decodeEntry(t, w)
		assert.Equal(t, models.EntryTypeTransfer, entry.Type)
		assert.Equal(t, "40.50", entry.Amount.StringFixed(2))
		assert.Equal(t, "59.50", entry.SourceBalanceAfter.StringFixed(2))
		assert.Regexp(t, `^TXN-\d{14}-\d{6}$`, entry.Reference)
	})

	t.Run("numeric amount accepted", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/transfers",
			fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": 0.50}`, from, to))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"insufficient funds", fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": "1000"}`, from, to), http.StatusUnprocessableEntity, "insufficient_funds"},
		{"frozen source", fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": "1"}`, frozen, to), http.StatusForbidden, "account_not_active"},
		{"unknown destination", fmt.Sprintf(`{"from_account_id": %d, "to_account_id": 999, "amount": "1"}`, from), http.StatusNotFound, "account_not_found"},
		{"same account", fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": "1"}`, from, from), http.StatusBadRequest, "same_account"},
		{"too precise", fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": "1.001"}`, from, to), http.StatusBadRequest, "invalid_amount"},
		{"negative", fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": "-1"}`, from, to), http.StatusBadRequest, "invalid_amount"},
		{"missing amount", fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d}`, from, to), http.StatusBadRequest, "validation_failed"},
		{"unknown field", `{"from": 1}`, http.StatusBadRequest, "validation_failed"},
		{"not json", `transfer please`, http.StatusBadRequest, "validation_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/v1/transfers", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}

	t.Run("validation details", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/transfers", `{"to_account_id": 2, "amount": "1"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "FromAccountID")
	})
}

func TestTransferHandler_Busy(t *testing.T) {
	api := newTestAPI(t)
	from := api.account(t, "100")
	to := api.account(t, "0")

	held, err := api.leases.Acquire(context.Background(), fmt.Sprint(from))
	require.NoError(t, err)
	defer held.Release(context.Background())

	w := api.do(t, http.MethodPost, "/api/v1/transfers",
		fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": "1"}`, from, to))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	resp := decodeError(t, w)
	assert.Equal(t, "busy", resp.Code)
	assert.True(t, resp.Retryable)
}

func TestTransferHandler_DepositAndWithdrawal(t *testing.T) {
	api := newTestAPI(t)
	acct := api.account(t, "0", func(a *models.Account) { a.Currency = "NGN" })

	w := api.do(t, http.MethodPost, "/api/v1/deposits", fmt.Sprintf(`{"account_id": %d, "amount": "500"}`, acct))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "NGN", decodeEntry(t, w).Currency)

	w = api.do(t, http.MethodPost, "/api/v1/withdrawals", fmt.Sprintf(`{"account_id": %d, "amount": "200", "currency": "NGN"}`, acct))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "300.00", decodeEntry(t, w).SourceBalanceAfter.StringFixed(2))

	w = api.do(t, http.MethodPost, "/api/v1/deposits", fmt.Sprintf(`{"account_id": %d, "amount": "1", "currency": "USD"}`, acct))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "currency_mismatch", decodeError(t, w).Code)

	w = api.do(t, http.MethodPost, "/api/v1/deposits", fmt.Sprintf(`{"account_id": %d, "amount": "1", "currency": "US"}`, acct))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Details, "Currency")
}

func TestCardEndpoints(t *testing.T) {
	api := newTestAPI(t)
	acct := api.account(t, "1000")
	card := api.card(t, acct, "100")

	w := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/cards/%d/charges", card), `{"amount": "80", "merchant": "Grocer"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	entry := decodeEntry(t, w)
	assert.Equal(t, "Grocer", entry.Merchant)
	assert.Equal(t, card, *entry.CardID)

	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/cards/%d/charges", card), `{"amount": "25", "merchant": "Grocer"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "daily_limit_exceeded", decodeError(t, w).Code)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/cards/%d/daily-spending", card), "")
	require.Equal(t, http.StatusOK, w.Code)
	var spending services.DailySpending
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spending))
	assert.Equal(t, "2024-03-05", spending.Date)
	assert.Equal(t, "80.00", spending.SpentToday.StringFixed(2))
	assert.Equal(t, "20.00", spending.RemainingLimit.StringFixed(2))

	w = api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cards/%d/daily-limit", card), `{"daily_limit": "150.00"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cards/%d/daily-limit", card), `{"daily_limit": "-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_amount", decodeError(t, w).Code)

	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/cards/%d/charges", card), `{"amount": "25", "merchant": "Grocer"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cards/%d/status", card), `{"status": "frozen"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/cards/%d/charges", card), `{"amount": "1", "merchant": "Grocer"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "card_not_active", decodeError(t, w).Code)

	w = api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cards/%d/status", card), `{"status": "stolen"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/cards/404/daily-spending", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/cards/abc/daily-spending", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountStatusEndpoint(t *testing.T) {
	api := newTestAPI(t)
	acct := api.account(t, "100")
	other := api.account(t, "10")

	w := api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/accounts/%d/status", acct), `{"status": "closed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, models.AccountStatusClosed, updated.Status)

	w = api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/accounts/%d/status", acct), `{"status": "active"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_status_transition", decodeError(t, w).Code)

	w = api.do(t, http.MethodPost, "/api/v1/transfers",
		fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": "1"}`, other, acct))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLedgerEndpoints(t *testing.T) {
	api := newTestAPI(t)
	a := api.account(t, "100")
	b := api.account(t, "0")

	w := api.do(t, http.MethodPost, "/api/v1/transfers", fmt.Sprintf(`{"from_account_id": %d, "to_account_id": %d, "amount": "30"}`, a, b))
	require.Equal(t, http.StatusCreated, w.Code)
	original := decodeEntry(t, w)

	w = api.do(t, http.MethodGet, "/api/v1/entries/"+original.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, original.Reference, decodeEntry(t, w).Reference)

	w = api.do(t, http.MethodGet, "/api/v1/entries/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/entries/00000000-0000-4000-8000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "entry_not_found", decodeError(t, w).Code)

	w = api.do(t, http.MethodPost, "/api/v1/entries/"+original.ID.String()+"/reversal", "")
	require.Equal(t, http.StatusCreated, w.Code)
	reversal := decodeEntry(t, w)
	require.NotNil(t, reversal.ReversesEntryID)
	assert.Equal(t, original.ID, *reversal.ReversesEntryID)

	w = api.do(t, http.MethodPost, "/api/v1/entries/"+original.ID.String()+"/reversal", `{"description": "again"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_reversed", decodeError(t, w).Code)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/entries", a), "")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.LedgerEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/entries?type=deposit", a), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/entries?start_date=2024-03-05&end_date=2024-03-05&min_amount=10&limit=1", a), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/entries?type=refund&limit=0&start_date=yesterday", a), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := decodeError(t, w).Details
	assert.Contains(t, details, "type")
	assert.Contains(t, details, "limit")
	assert.Contains(t, details, "start_date")
}

func TestParseDate(t *testing.T) {
	start, err := parseDate("2024-03-05", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), start)

	end, err := parseDate("2024-03-05", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 23, 59, 59, 999999999, time.UTC), end)

	exact, err := parseDate("2024-03-05T10:00:00+01:00", false)
	require.NoError(t, err)
	assert.True(t, exact.Equal(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)))

	_, err = parseDate("05/03/2024", false)
	assert.Error(t, err)
}
