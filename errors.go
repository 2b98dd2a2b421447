package sociallogin

// Error codes used in HTTP error responses.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeServerError    = "server_error"
)

// ErrorResponse represents an error response body. Provider error detail is
// never copied into it; the end user only ever sees a generic description.
type ErrorResponse struct {
	// Error is the error code
	Error string `json:"error"`

	// ErrorDescription provides additional information
	ErrorDescription string `json:"error_description,omitempty"`
}
