package common

// APIResponse mirrors the server envelope: success responses wrap their
// payload in "data", error responses carry "message" and an optional typed
// "reason".
type APIResponse[T any] struct {
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
