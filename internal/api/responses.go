package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
	Code  string `json:"code,omitempty" example:"conflict"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Stable error codes returned alongside messages. Consumers branch on the
// code, never on the message text.
const (
	CodeValidation        = "validation_error"
	CodeConflict          = "conflict"
	CodeInsufficientFunds = "insufficient_funds"
	CodeStateTransition   = "state_transition_error"
	CodeWindowClosed      = "window_closed"
	CodeNotFound          = "not_found"
	CodeInternal          = "internal_error"
)
