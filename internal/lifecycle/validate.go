package lifecycle

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/opsboard/internal/domain"
)

// Length bounds for request text fields, in characters.
const (
	DescriptionMin = 3
	DescriptionMax = 200
	LocationMin    = 2
	LocationMax    = 80
	RequestedByMin = 2
	RequestedByMax = 60
)

// CreateInput carries the fields of a new request.
type CreateInput struct {
	Type        domain.RequestType
	Description string
	Urgency     domain.Urgency
	Location    string
	RequestedBy string
	OwnerID     string
}

// Normalize trims surrounding whitespace from the text fields.
func (in CreateInput) Normalize() CreateInput {
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.RequestedBy = strings.TrimSpace(in.RequestedBy)
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	return in
}

// Validate checks enum membership and length bounds. It returns a *ValidationError
// listing every offending field, or nil.
func (in CreateInput) Validate() error {
	var issues []Issue
	if !in.Type.Valid() {
		issues = append(issues, Issue{Field: "type", Message: fmt.Sprintf("unknown request type %q", in.Type)})
	}
	if !in.Urgency.Valid() {
		issues = append(issues, Issue{Field: "urgency", Message: fmt.Sprintf("unknown urgency %q", in.Urgency)})
	}
	issues = appendLengthIssue(issues, "description", in.Description, DescriptionMin, DescriptionMax)
	issues = appendLengthIssue(issues, "location", in.Location, LocationMin, LocationMax)
	issues = appendLengthIssue(issues, "requestedBy", in.RequestedBy, RequestedByMin, RequestedByMax)
	if in.OwnerID == "" {
		issues = append(issues, Issue{Field: "ownerId", Message: "required"})
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func appendLengthIssue(issues []Issue, field, value string, min, max int) []Issue {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return append(issues, Issue{Field: field, Message: fmt.Sprintf("must be between %d and %d characters", min, max)})
	}
	return issues
}
