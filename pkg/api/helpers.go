// Package api provides standardized helper functions for HTTP API responses.
package api

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
	CaseID    string `json:"case_id,omitempty"`
}

// Success sends a standardized successful HTTP response with optional JSON data.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error sends a standardized error response with consistent JSON format.
func Error(w http.ResponseWriter, statusCode int, detail string) {
	ErrorWithCode(w, statusCode, detail, "")
}

// ErrorWithCode sends an error response carrying a machine-readable code.
func ErrorWithCode(w http.ResponseWriter, statusCode int, detail, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorBody{Detail: detail, ErrorCode: code})
}

// ErrorForCase sends an error response naming the case it concerns.
func ErrorForCase(w http.ResponseWriter, statusCode int, detail, code, caseID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorBody{Detail: detail, ErrorCode: code, CaseID: caseID})
}
