package middleware

import (
	"encoding/json"
	"net/http"
)

// errBody matches the {"detail": ...} shape used by the task handlers.
type errBody struct {
	Detail string `json:"detail"`
}

func writeErr(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errBody{Detail: detail})
}
