// Package models defines API response envelope types.
package models

// APIStatus represents the status field of an API response.
type APIStatus string

const (
	StatusOK    APIStatus = "ok"
	StatusError APIStatus = "error"
)

// APIResponse is the standard envelope for HTTP responses.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result any) APIResponse {
	return APIResponse{Status: string(StatusOK), Result: result}
}

// Error creates an error API response with the given message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(StatusError), Message: message}
}
