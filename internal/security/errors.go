package security

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the uniform failure envelope: a stable machine-readable
// code, a human-readable message, and optional extra detail fields.
type ErrorResponse struct {
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
}

func WriteJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSONErrorDetail(w, r, status, code, message, nil)
}

func WriteJSONErrorDetail(w http.ResponseWriter, r *http.Request, status int, code, message string, detail map[string]any) {
	cid := CorrelationIDFromContext(r.Context())
	if cid != "" {
		w.Header().Set(CorrelationIDHeader, cid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Code:          code,
		Message:       message,
		CorrelationID: cid,
		Detail:        detail,
	})
}
