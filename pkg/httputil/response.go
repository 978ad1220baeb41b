// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding, and request parameter parsing.
//
// All error responses carry the body {"detail": "<message>"} except rate
// limit rejections, which use {"error", "limit", "reset_in_seconds"}.
package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// DetailResponse is the standard error body for non-2xx responses
type DetailResponse struct {
	Detail string `json:"detail"`
}

// RateLimitResponse is the 429 body shape
type RateLimitResponse struct {
	Error          string `json:"error"`
	Limit          int    `json:"limit"`
	ResetInSeconds int    `json:"reset_in_seconds"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteDetail writes an error response with the standard detail body
func WriteDetail(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, DetailResponse{Detail: message})
}

// WriteValidationError writes a parameter validation failure (400)
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an authentication failure (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes an authorization failure (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusForbidden, message)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusNotFound, message)
}

// WriteInternalError writes an internal error (500) without exposing
// internals in the body.
func WriteInternalError(w http.ResponseWriter) {
	WriteDetail(w, http.StatusInternalServerError, "Internal server error")
}

// WriteBadGateway writes an upstream failure (502)
func WriteBadGateway(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusBadGateway, message)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusServiceUnavailable, message)
}

// WriteRateLimited writes a 429 with rate limit headers and body
func WriteRateLimited(w http.ResponseWriter, limit, resetInSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(resetInSeconds))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetInSeconds))
	WriteJSON(w, http.StatusTooManyRequests, RateLimitResponse{
		Error:          "Rate limit exceeded",
		Limit:          limit,
		ResetInSeconds: resetInSeconds,
	})
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}
