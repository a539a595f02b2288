package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/harshverma7/payment-web/internal/auth"
	"github.com/harshverma7/payment-web/internal/ledger"
	"github.com/harshverma7/payment-web/internal/security"
)

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

func handleBalance(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			security.WriteJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		balance, err := deps.Queries.Balance(r.Context(), userID)
		if err != nil {
			if errors.Is(err, ledger.ErrNoAccount) {
				security.WriteJSONError(w, r, http.StatusNotFound, "account_not_found", "Balance not found")
				return
			}
			deps.Logger.Error("balance query failed", "user_id", userID, "error", err)
			security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error", "Balance not found")
			return
		}

		writeJSON(w, r, http.StatusOK, balanceResponse{Balance: balance})
	}
}

// transferRequest decodes the amount by hand so missing or non-numeric values
// surface as the invalid-amount kind instead of a generic validation error.
type transferRequest struct {
	To     string          `json:"to"`
	Amount json.RawMessage `json:"amount"`
}

func (req *transferRequest) amount() (int64, bool) {
	if len(req.Amount) == 0 || string(req.Amount) == "null" {
		return 0, true
	}
	var n int64
	if err := json.Unmarshal(req.Amount, &n); err != nil {
		return 0, false
	}
	return n, true
}

type transferResponse struct {
	Message   string    `json:"message"`
	EntryID   string    `json:"entry_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func handleTransfer(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			security.WriteJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON")
			return
		}

		amount, numeric := req.amount()
		if !numeric {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_amount", "Amount must be positive")
			return
		}

		entry, err := deps.Engine.Transfer(r.Context(), userID, req.To, amount)
		if err != nil {
			writeTransferError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, transferResponse{
			Message:   "Transfer successful",
			EntryID:   entry.ID,
			Amount:    entry.Amount,
			CreatedAt: entry.CreatedAt,
		})
	}
}

func writeTransferError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *ledger.InsufficientFundsError
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_amount", "Amount must be positive")
	case errors.Is(err, ledger.ErrInvalidRecipient):
		security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_recipient", "Recipient is required")
	case errors.Is(err, ledger.ErrSelfTransfer):
		security.WriteJSONError(w, r, http.StatusBadRequest, "self_transfer", "Cannot transfer to self")
	case errors.Is(err, ledger.ErrInvalidSender):
		security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_sender", "Invalid sender")
	case errors.As(err, &insufficient):
		security.WriteJSONErrorDetail(w, r, http.StatusBadRequest, "insufficient_funds", "Insufficient balance",
			map[string]any{"balance": insufficient.Balance})
	case errors.Is(err, ledger.ErrInvalidReceiver):
		security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_receiver", "Invalid receiver")
	case errors.Is(err, ledger.ErrTransferAborted):
		security.WriteJSONError(w, r, http.StatusInternalServerError, "transfer_aborted", "An error occurred during transfer")
	default:
		security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error", "An error occurred during transfer")
	}
}

type historyResponse struct {
	History []ledger.HistoryItem `json:"history"`
}

func handleHistory(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			security.WriteJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		items, err := deps.Queries.History(r.Context(), userID)
		if err != nil {
			deps.Logger.Error("history query failed", "user_id", userID, "error", err)
			security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error", "An error occurred fetching history")
			return
		}
		if items == nil {
			items = []ledger.HistoryItem{}
		}

		writeJSON(w, r, http.StatusOK, historyResponse{History: items})
	}
}
