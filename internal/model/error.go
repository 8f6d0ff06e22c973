package model

// ErrorResponse is the consistent JSON structure for all command error output.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
