package utils

// ErrorResponse is the JSON body for failed list and detail queries, carrying
// both a user-facing message and the underlying error text.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
