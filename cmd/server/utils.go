package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

// parseID parses a positive integer path element.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// safeRedirect only allows local absolute paths as login redirect targets.
func safeRedirect(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/countryset/"
	}
	return next
}

// APIResponse is the standard response format
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data any) error {
	return writeJSON(w, statusCode, APIResponse{Success: true, Data: data})
}

// statusFor maps a store error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case labdb.IsNotFound(err):
		return http.StatusNotFound
	case labdb.IsValidation(err):
		return http.StatusBadRequest
	case labdb.IsConflict(err):
		return http.StatusConflict
	case labdb.IsUnauthorized(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeLabError reports err with the status its type implies. Server
// errors are logged and their details withheld.
func writeLabError(w http.ResponseWriter, err error, op string) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.S().Errorw("request failed", "op", op, "error", err)
		return writeError(w, status, op+" failed")
	}
	resp := APIResponse{Success: false, Error: err.Error()}
	var le *labdb.LabError
	if errors.As(err, &le) {
		resp.Code = le.Code
	}
	return writeJSON(w, status, resp)
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
