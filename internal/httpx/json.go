package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Success: false, Message: message})
}
