package httpx

import (
	"encoding/json"
	"log"
	"net/http"

	"gitstore/internal/apperr"
)

// Envelope is the standard response body for both services.
type Envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// WriteError writes a failure envelope with an explicit status and code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Envelope{
		Success: false,
		Message: message,
		Error:   &ErrorBody{Code: code},
	})
}

// Fail maps an error through the taxonomy. Internal failures are logged
// and answered with a generic message so no detail leaks to the caller.
func Fail(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if code == apperr.CodeInternal {
		log.Printf("internal error: %v", err)
		msg = "internal error"
	}
	WriteError(w, status, string(code), msg)
}
