package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/services"
	"github.com/shopspring/decimal"
)

type LedgerHandler struct {
	ledger       *services.LedgerLog
	orchestrator *services.TransferOrchestrator
	validator    *services.ValidationHelper
}

func NewLedgerHandler(ledger *services.LedgerLog, orchestrator *services.TransferOrchestrator) *LedgerHandler {
	return &LedgerHandler{
		ledger:       ledger,
		orchestrator: orchestrator,
		validator:    services.NewValidationHelper(),
	}
}

// ReversalRequest optionally describes a reversal
type ReversalRequest struct {
	Description string `json:"description" validate:"max=255"`
}

// ListEntries returns an account's ledger history
// @Summary Account ledger history
// @Description List ledger entries touching an account, newest first
// @Tags Ledger
// @Produce json
// @Param accountId path int true "Account ID"
// @Param start_date query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param end_date query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Param type query string false "Entry type" Enums(transfer, deposit, withdrawal, card_charge)
// @Param min_amount query string false "Minimum amount"
// @Param max_amount query string false "Maximum amount"
// @Param offset query int false "Entries to skip"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {array} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Router /accounts/{accountId}/entries [get]
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountId")
	if !ok {
		return
	}

	filter, details := parseEntryFilter(r.URL.Query())
	if len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, services.ErrorResponse{
			Error:   "Invalid query parameters",
			Code:    "validation_failed",
			Details: details,
		})
		return
	}
	filter.AccountID = accountID

	entries, err := h.ledger.History(r.Context(), filter)
	if err != nil {
		sendError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetEntry returns one ledger entry
// @Summary Get ledger entry
// @Tags Ledger
// @Produce json
// @Param entryId path string true "Entry ID (UUID)"
// @Success 200 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /entries/{entryId} [get]
func (h *LedgerHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "entryId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid entryId", http.StatusBadRequest, nil)
		return
	}

	entry, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ReverseEntry reverses a committed transfer
// @Summary Reverse transfer
// @Description Move a transfer's amount back from its recipient; each transfer can be reversed once
// @Tags Ledger
// @Accept json
// @Produce json
// @Param entryId path string true "Entry ID (UUID)"
// @Param request body ReversalRequest false "Reversal request"
// @Success 201 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /entries/{entryId}/reversal [post]
func (h *LedgerHandler) ReverseEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "entryId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid entryId", http.StatusBadRequest, nil)
		return
	}

	var req ReversalRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	entry, err := h.orchestrator.Reverse(r.Context(), id, req.Description)
	if err != nil {
		sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// parseEntryFilter reads the history query parameters. Invalid values are
// reported per parameter.
func parseEntryFilter(q url.Values) (models.EntryFilter, map[string]string) {
	var filter models.EntryFilter
	details := make(map[string]string)

	if v := q.Get("start_date"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			details["start_date"] = err.Error()
		} else {
			filter.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			details["end_date"] = err.Error()
		} else {
			filter.EndDate = &t
		}
	}
	if v := q.Get("type"); v != "" {
		filter.Type = models.EntryType(v)
		if !filter.Type.Valid() {
			details["type"] = fmt.Sprintf("unknown entry type %q", v)
		}
	}
	if v := q.Get("min_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			details["min_amount"] = "must be a decimal amount"
		} else {
			filter.MinAmount = &d
		}
	}
	if v := q.Get("max_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			details["max_amount"] = "must be a decimal amount"
		} else {
			filter.MaxAmount = &d
		}
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			details["offset"] = "must be a non-negative integer"
		} else {
			filter.Offset = n
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			details["limit"] = "must be a positive integer"
		} else {
			filter.Limit = n
		}
	}
	return filter, details
}

// parseDate accepts RFC3339 timestamps or plain dates; a plain end date
// covers the whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
