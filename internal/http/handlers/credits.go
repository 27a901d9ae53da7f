package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// GetBalance returns the caller's current credit balance.
func (a *App) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	balance, err := a.Ledger.Balance(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: load balance failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load balance")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"user_id": balance.UserID,
		"balance": balance.Balance,
	})
}

// ListTransactions returns the caller's ledger history, newest first.
func (a *App) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	items, err := a.Ledger.Transactions(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: load transactions failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load transactions")
		return
	}
	payload := make([]map[string]any, 0, len(items))
	for _, txn := range items {
		entry := map[string]any{
			"id":         txn.ID,
			"amount":     txn.Amount,
			"kind":       txn.Kind,
			"reason":     txn.Reason,
			"created_at": txn.CreatedAt,
		}
		if txn.JobID != "" {
			entry["job_id"] = txn.JobID
		}
		payload = append(payload, entry)
	}
	a.json(w, http.StatusOK, map[string]any{"items": payload})
}

// Purchase posts a mock credit-pack purchase. The real checkout/webhook flow
// lives outside this service; this endpoint exists for development and is
// disabled unless mock payments are enabled.
func (a *App) Purchase(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if !a.MockPayments {
		a.error(w, http.StatusForbidden, "forbidden", "mock payments are disabled")
		return
	}
	var req struct {
		PackID string `json:"pack_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "body must be JSON")
		return
	}
	pack, ok := a.Packs[strings.TrimSpace(req.PackID)]
	if !ok {
		a.error(w, http.StatusUnprocessableEntity, "invalid_pack", "unknown credit pack")
		return
	}
	if err := a.Ledger.Purchase(r.Context(), userID, pack.Credits, "credit pack "+req.PackID); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: purchase failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to post purchase")
		return
	}
	balance, err := a.Ledger.Balance(r.Context(), userID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load balance")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"pack_id": req.PackID,
		"credits": pack.Credits,
		"balance": balance.Balance,
	})
}
