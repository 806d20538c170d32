// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package respond writes the JSON envelope every API response uses:
//
//	{"success": bool, "message": string, "data": ..., "meta": ..., "token": ..., "errors": [...]}
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"blogapi/internal/pagination"
)

// MsgInternal is the only message clients see for unexpected failures.
const MsgInternal = "Internal server error"

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Envelope is the response body shape.
type Envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    any              `json:"data,omitempty"`
	Meta    *pagination.Meta `json:"meta,omitempty"`
	Token   string           `json:"token,omitempty"`
	Errors  []FieldError     `json:"errors,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// OK writes a successful envelope carrying data.
func OK(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Page writes one page of a listing with its metadata.
func Page[T any](w http.ResponseWriter, message string, res *pagination.Result[T]) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: res.Data, Meta: &res.Meta})
}

// WithToken writes a successful envelope that also carries an access token.
func WithToken(w http.ResponseWriter, status int, message string, data any, token string) {
	JSON(w, status, Envelope{Success: true, Message: message, Data: data, Token: token})
}

// Error writes a failure envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// Invalid writes a 400 listing the rejected fields.
func Invalid(w http.ResponseWriter, message string, errs []FieldError) {
	JSON(w, http.StatusBadRequest, Envelope{Success: false, Message: message, Errors: errs})
}

// Internal logs err with request context and writes a generic 500.
func Internal(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	Error(w, http.StatusInternalServerError, MsgInternal)
}
