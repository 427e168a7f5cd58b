package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/validation"

	"github.com/rs/zerolog/log"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

// respondJSON writes v with the given status
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondSuccess sends data in the success envelope
func respondSuccess(w http.ResponseWriter, statusCode int, data any) {
	respondJSON(w, statusCode, Response{Success: true, Data: data})
}

// respondList sends a list with its length
func respondList[T any](w http.ResponseWriter, items []T) {
	count := len(items)
	respondJSON(w, http.StatusOK, Response{Success: true, Data: items, Count: &count})
}

// respondMessage sends a success envelope with only a message
func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, Response{Success: false, Message: message})
}

// respondAppError maps a service error onto the HTTP status and the public message
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		log.Debug().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request rejected")
	}
	respondError(w, apperr.PublicMessage(err), status)
}

// decodeJSON reads the request body into dst and validates it
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("Request body is required")
		}
		return apperr.Invalid("Invalid request body")
	}
	return validation.Struct(dst)
}

// queryInt parses an integer query parameter, returning def when absent or malformed
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
