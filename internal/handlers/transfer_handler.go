package handlers

import (
	"net/http"

	"github.com/ruralpay/corebank/internal/services"
	"github.com/shopspring/decimal"
)

type TransferHandler struct {
	orchestrator *services.TransferOrchestrator
	validator    *services.ValidationHelper
}

func NewTransferHandler(orchestrator *services.TransferOrchestrator) *TransferHandler {
	return &TransferHandler{
		orchestrator: orchestrator,
		validator:    services.NewValidationHelper(),
	}
}

// TransferRequest moves money between two accounts
type TransferRequest struct {
	FromAccountID int64            `json:"from_account_id" validate:"required,gt=0"`
	ToAccountID   int64            `json:"to_account_id" validate:"required,gt=0"`
	Amount        *decimal.Decimal `json:"amount" validate:"required" swaggertype:"string" example:"25.00"`
	Description   string           `json:"description" validate:"max=255"`
}

// MovementRequest is a deposit into or withdrawal from one account
type MovementRequest struct {
	AccountID   int64            `json:"account_id" validate:"required,gt=0"`
	Amount      *decimal.Decimal `json:"amount" validate:"required" swaggertype:"string" example:"100.00"`
	Currency    string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Description string           `json:"description" validate:"max=255"`
}

// CardChargeRequest charges a card at a merchant
type CardChargeRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required" swaggertype:"string" example:"12.50"`
	Merchant    string           `json:"merchant" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=255"`
}

// CreateTransfer moves money between accounts
// @Summary Transfer between accounts
// @Description Debit one account and credit another in a single ledger entry
// @Tags Transfers
// @Accept json
// @Produce json
// @Param request body TransferRequest true "Transfer request"
// @Success 201 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	op := services.Transfer(req.FromAccountID, req.ToAccountID, *req.Amount, req.Description)
	h.execute(w, r, op)
}

// CreateDeposit credits an account
// @Summary Deposit
// @Description Credit an account; currency defaults to the account currency
// @Tags Transfers
// @Accept json
// @Produce json
// @Param request body MovementRequest true "Deposit request"
// @Success 201 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /deposits [post]
func (h *TransferHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req MovementRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	h.execute(w, r, services.Deposit(req.AccountID, *req.Amount, req.Currency, req.Description))
}

// CreateWithdrawal debits an account
// @Summary Withdrawal
// @Description Debit an account; currency defaults to the account currency
// @Tags Transfers
// @Accept json
// @Produce json
// @Param request body MovementRequest true "Withdrawal request"
// @Success 201 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /withdrawals [post]
func (h *TransferHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req MovementRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	h.execute(w, r, services.Withdrawal(req.AccountID, *req.Amount, req.Currency, req.Description))
}

// ChargeCard charges a card against its linked account
// @Summary Card charge
// @Description Charge a card, enforcing its status and daily spending limit
// @Tags Cards
// @Accept json
// @Produce json
// @Param cardId path int true "Card ID"
// @Param request body CardChargeRequest true "Charge request"
// @Success 201 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /cards/{cardId}/charges [post]
func (h *TransferHandler) ChargeCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathID(w, r, "cardId")
	if !ok {
		return
	}

	var req CardChargeRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	h.execute(w, r, services.CardCharge(cardID, *req.Amount, req.Merchant, req.Description))
}

func (h *TransferHandler) execute(w http.ResponseWriter, r *http.Request, op services.Operation) {
	entry, err := h.orchestrator.Execute(r.Context(), op)
	if err != nil {
		sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
