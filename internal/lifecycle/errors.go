package lifecycle

import (
	"fmt"
	"strings"

	"github.com/spec-kit/opsboard/internal/domain"
)

// Code identifies a lifecycle rule rejection.
type Code string

const (
	CodeInvalidOwner      Code = "INVALID_OWNER"
	CodeCannotAssignDone  Code = "CANNOT_ASSIGN_DONE"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
)

// RuleError is returned when a mutation is illegal for the current snapshot.
type RuleError struct {
	Code    Code
	From    domain.RequestStatus
	To      domain.RequestStatus
	OwnerID string
}

// Sentinels for errors.Is; only the Code is compared.
var (
	ErrInvalidOwner      = &RuleError{Code: CodeInvalidOwner}
	ErrCannotAssignDone  = &RuleError{Code: CodeCannotAssignDone}
	ErrInvalidTransition = &RuleError{Code: CodeInvalidTransition}
)

func (e *RuleError) Error() string {
	switch e.Code {
	case CodeInvalidTransition:
		return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
	case CodeInvalidOwner:
		if e.OwnerID == "" {
			return "owner missing or inactive"
		}
		return fmt.Sprintf("owner %s missing or inactive", e.OwnerID)
	case CodeCannotAssignDone:
		return "cannot assign a request that is DONE"
	default:
		return string(e.Code)
	}
}

// Is matches any RuleError with the same Code.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Code == e.Code
}

// Details returns the context a caller needs to explain the rejection.
func (e *RuleError) Details() map[string]any {
	switch e.Code {
	case CodeInvalidTransition:
		return map[string]any{"from": e.From, "to": e.To}
	case CodeInvalidOwner:
		if e.OwnerID != "" {
			return map[string]any{"ownerId": e.OwnerID}
		}
	}
	return nil
}

// Issue is one field that failed validation.
type Issue struct {
	Field   string
	Message string
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
