package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error codes shared by every endpoint. Domain failures use the snake_case
// text of the matching sentinel instead (see mapError).
const (
	codeInvalidRequest = "invalid_request"
	codeValidation     = "validation_error"
	codeInternal       = "internal_error"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes data as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // the status line is already out
}

// WriteError writes an errorResponse with the given status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorResponse{Error: code, Message: message})
}

// ParseJSON decodes a single JSON object from the request body into v.
// Unknown fields, trailing data and a non-JSON Content-Type are rejected.
func ParseJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return errors.New("Content-Type must be application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON object")
	}
	return nil
}

// decodeBody is ParseJSON for handlers: on failure it writes a 400
// invalid_request response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := ParseJSON(r, v); err != nil {
		WriteError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return false
	}
	return true
}
