package tools

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrToolNotFound is returned when the dispatched name is not registered.
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolUnavailable is returned when the tool is registered,
	// but its capability requirements are not met by the session.
	ErrToolUnavailable = errors.New("tool not available")
	// ErrDuplicateTool is returned when two plugins share the same name.
	ErrDuplicateTool = errors.New("duplicate tool name")
	// ErrInvalidDefinition is returned when a tool definition is malformed.
	ErrInvalidDefinition = errors.New("invalid tool definition")
	// ErrInvalidArguments is returned when arguments do not match the tool schema.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// DefaultFailureInstructions are attached to results produced from tool faults.
const DefaultFailureInstructions = "Tell the user that the operation failed and briefly explain the reason."

// UserMessage returns a user-presentable message for the error:
// the hints attached to the error if any, otherwise the error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if hints := strings.TrimSpace(errors.FlattenHints(err)); hints != "" {
		return hints
	}
	return err.Error()
}

// WithDefaultHint attaches the hint unless the error already carries one.
func WithDefaultHint(err error, hint string) error {
	if err == nil || len(errors.GetAllHints(err)) > 0 {
		return err
	}
	return errors.WithHint(err, hint)
}
