package httpapi

import (
	"encoding/json"
	"net/http"

	"support-chat/errors"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps the core taxonomy onto HTTP statuses. Transient
// store failures surface as 503 so clients keep the draft and retry.
func respondDomainError(w http.ResponseWriter, err error) {
	respondError(w, errors.HTTPStatus(err), err.Error())
}
