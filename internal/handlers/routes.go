package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the engine endpoints on r, normally the /api/v1
// sub-router.
func RegisterRoutes(r chi.Router, transfers *TransferHandler, ledger *LedgerHandler, controls *ControlsHandler) {
	r.Post("/transfers", transfers.CreateTransfer)
	r.Post("/deposits", transfers.CreateDeposit)
	r.Post("/withdrawals", transfers.CreateWithdrawal)

	r.Route("/cards/{cardId}", func(r chi.Router) {
		r.Post("/charges", transfers.ChargeCard)
		r.Get("/daily-spending", controls.GetDailySpending)
		r.Put("/status", controls.SetCardStatus)
		r.Put("/daily-limit", controls.SetCardDailyLimit)
	})

	r.Route("/accounts/{accountId}", func(r chi.Router) {
		r.Get("/entries", ledger.ListEntries)
		r.Put("/status", controls.SetAccountStatus)
	})

	r.Get("/entries/{entryId}", ledger.GetEntry)
	r.Post("/entries/{entryId}/reversal", ledger.ReverseEntry)
}
