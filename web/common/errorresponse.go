package common

type ErrorResponse struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
	}
}

// NewRejectionResponse carries the engine's typed rejection code alongside
// the human-readable message.
func NewRejectionResponse(reason, message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
		Reason:  reason,
	}
}
