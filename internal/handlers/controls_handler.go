package handlers

import (
	"net/http"

	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/services"
	"github.com/shopspring/decimal"
)

type ControlsHandler struct {
	controls  *services.AccountControls
	limiter   *services.CardSpendingLimiter
	clock     services.Clock
	validator *services.ValidationHelper
}

func NewControlsHandler(controls *services.AccountControls, limiter *services.CardSpendingLimiter, clock services.Clock) *ControlsHandler {
	return &ControlsHandler{
		controls:  controls,
		limiter:   limiter,
		clock:     clock,
		validator: services.NewValidationHelper(),
	}
}

// AccountStatusRequest changes an account's status
type AccountStatusRequest struct {
	Status models.AccountStatus `json:"status" validate:"required,oneof=active frozen closed"`
}

// CardStatusRequest changes a card's status
type CardStatusRequest struct {
	Status models.CardStatus `json:"status" validate:"required,oneof=inactive active frozen"`
}

// DailyLimitRequest replaces a card's daily limit
type DailyLimitRequest struct {
	DailyLimit *decimal.Decimal `json:"daily_limit" validate:"required" swaggertype:"string" example:"1000.00"`
}

// SetAccountStatus freezes or closes an account
// @Summary Change account status
// @Description Transitions are one-way: active to frozen or closed, frozen to closed
// @Tags Accounts
// @Accept json
// @Produce json
// @Param accountId path int true "Account ID"
// @Param request body AccountStatusRequest true "Status request"
// @Success 200 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /accounts/{accountId}/status [put]
func (h *ControlsHandler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountId")
	if !ok {
		return
	}

	var req AccountStatusRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	acct, err := h.controls.ChangeAccountStatus(r.Context(), accountID, req.Status)
	if err != nil {
		sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// SetCardStatus activates or freezes a card
// @Summary Change card status
// @Tags Cards
// @Accept json
// @Produce json
// @Param cardId path int true "Card ID"
// @Param request body CardStatusRequest true "Status request"
// @Success 200 {object} models.Card
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /cards/{cardId}/status [put]
func (h *ControlsHandler) SetCardStatus(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathID(w, r, "cardId")
	if !ok {
		return
	}

	var req CardStatusRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	card, err := h.controls.ChangeCardStatus(r.Context(), cardID, req.Status)
	if err != nil {
		sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// SetCardDailyLimit replaces a card's daily spending limit
// @Summary Set card daily limit
// @Tags Cards
// @Accept json
// @Produce json
// @Param cardId path int true "Card ID"
// @Param request body DailyLimitRequest true "Limit request"
// @Success 200 {object} models.Card
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /cards/{cardId}/daily-limit [put]
func (h *ControlsHandler) SetCardDailyLimit(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathID(w, r, "cardId")
	if !ok {
		return
	}

	var req DailyLimitRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	card, err := h.controls.SetCardDailyLimit(r.Context(), cardID, *req.DailyLimit)
	if err != nil {
		sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// GetDailySpending reports today's card spending
// @Summary Card daily spending
// @Description Spending and remaining limit for the card's current local day
// @Tags Cards
// @Produce json
// @Param cardId path int true "Card ID"
// @Success 200 {object} services.DailySpending
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /cards/{cardId}/daily-spending [get]
func (h *ControlsHandler) GetDailySpending(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathID(w, r, "cardId")
	if !ok {
		return
	}

	spending, err := h.limiter.CardDailySpending(r.Context(), cardID, h.clock.Now())
	if err != nil {
		sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spending)
}
