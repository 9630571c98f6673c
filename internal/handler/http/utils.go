// Package http holds the response envelope and small request helpers
// every behavioral/trust/session handler shares.
package http

import (
	"encoding/json"
	"net/http"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// SuccessResponse writes a successful response
func SuccessResponse(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	json.NewEncoder(w).Encode(response)
}

// ErrorResponseWithMessage writes an error response with a message
func ErrorResponseWithMessage(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Success: false,
		Error:   message,
		Status:  statusCode,
	}

	json.NewEncoder(w).Encode(response)
}

// CreatedResponse writes a 201 Created response
func CreatedResponse(w http.ResponseWriter, data interface{}) {
	SuccessResponse(w, data, http.StatusCreated)
}

// BadRequestResponse writes a 400 Bad Request response
func BadRequestResponse(w http.ResponseWriter, message string) {
	ErrorResponseWithMessage(w, message, http.StatusBadRequest)
}

// UnauthorizedResponse writes a 401 Unauthorized response
func UnauthorizedResponse(w http.ResponseWriter, message string) {
	ErrorResponseWithMessage(w, message, http.StatusUnauthorized)
}

// NotFoundResponse writes a 404 Not Found response
func NotFoundResponse(w http.ResponseWriter, message string) {
	ErrorResponseWithMessage(w, message, http.StatusNotFound)
}

// ConflictResponse writes a 409 Conflict response
func ConflictResponse(w http.ResponseWriter, message string) {
	ErrorResponseWithMessage(w, message, http.StatusConflict)
}

// InternalErrorResponse writes a 500 Internal Server Error response
func InternalErrorResponse(w http.ResponseWriter, message string) {
	ErrorResponseWithMessage(w, message, http.StatusInternalServerError)
}

// OKResponse writes a 200 OK response
func OKResponse(w http.ResponseWriter, data interface{}) {
	SuccessResponse(w, data, http.StatusOK)
}

// DecodeJSONBody decodes a JSON request body
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		BadRequestResponse(w, "request body cannot be empty")
		return false
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		BadRequestResponse(w, "invalid request body: "+err.Error())
		return false
	}

	return true
}

// GetPathParam extracts a net/http 1.22+ ServeMux path wildcard
// ("/ml/model/status/{uid}") from the request.
func GetPathParam(r *http.Request, paramName string) string {
	return r.PathValue(paramName)
}

// GetQueryParamInt gets a query parameter as integer
func GetQueryParamInt(r *http.Request, paramName string, defaultValue int) int {
	value := r.URL.Query().Get(paramName)
	if value == "" {
		return defaultValue
	}

	var result int
	err := json.Unmarshal([]byte(value), &result)
	if err != nil {
		return defaultValue
	}

	return result
}
