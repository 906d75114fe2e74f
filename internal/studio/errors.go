package studio

import (
	"errors"
	"fmt"
)

// Validation errors. Each is returned before any network call and leaves
// state untouched.
var (
	ErrEmptyMessage          = errors.New("enter a message to send to the agent")
	ErrNoAccount             = errors.New("select the AWS account to test against")
	ErrNoCustomAgent         = errors.New("select or create a custom agent")
	ErrUnknownAgent          = errors.New("custom agent not found")
	ErrToolNotAvailable      = errors.New("tool is not available for this agent")
	ErrCodeExecutionDisabled = errors.New("enable the sandbox tool for this agent before executing code")
	ErrEmptyCode             = errors.New("paste a code snippet to execute")
	ErrNotConfirmed          = errors.New("sandbox execution was not confirmed")
	ErrEmptyActionID         = errors.New("action id is required")
	ErrInvalidActionMode     = errors.New("action mode must be PR or DIRECT")
	ErrInvalidBackend        = errors.New("backend must be langgraph or agentcore")
	ErrAgentNameRequired     = errors.New("agent name is required")
	ErrFeedbackIncomplete    = errors.New("provide both the prompt and desired response")
	ErrUnknownQuickPrompt    = errors.New("unknown quick prompt")
)

// ErrBusy is returned when an operation of the same kind is already in flight.
var ErrBusy = errors.New("operation already in progress")

var validationErrors = []error{
	ErrEmptyMessage, ErrNoAccount, ErrNoCustomAgent, ErrUnknownAgent,
	ErrToolNotAvailable, ErrCodeExecutionDisabled, ErrEmptyCode, ErrNotConfirmed,
	ErrEmptyActionID, ErrInvalidActionMode, ErrInvalidBackend, ErrAgentNameRequired,
	ErrFeedbackIncomplete, ErrUnknownQuickPrompt,
}

// IsValidation reports whether err is one of the pre-flight validation errors.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// ActionFailedError is returned when the backend reports an action as FAILED.
type ActionFailedError struct {
	ActionID string
	Mode     string
	Message  string
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("%s failed for %s: %s", e.Mode, e.ActionID, e.Message)
}
