package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/opsboard/internal/domain"
	"github.com/spec-kit/opsboard/internal/lifecycle"
	apperrors "github.com/spec-kit/opsboard/pkg/util/errorutil"
)

// CreateRequestBody is the POST /requests payload.
type CreateRequestBody struct {
	Type        domain.RequestType `json:"type"`
	Description string             `json:"description"`
	Urgency     domain.Urgency     `json:"urgency"`
	Location    string             `json:"location"`
	RequestedBy string             `json:"requestedBy"`
	OwnerID     *string            `json:"ownerId"`
}

// Validate checks the parts the lifecycle engine cannot: id formats.
func (b CreateRequestBody) Validate() error {
	if b.OwnerID != nil && !isUUID(*b.OwnerID) {
		return apperrors.NewValidationError("request payload is invalid", []apperrors.FieldIssue{
			{Field: "ownerId", Message: "must be a UUID"},
		})
	}
	return nil
}

// Input converts the body into engine input. A missing ownerId stays empty.
func (b CreateRequestBody) Input() lifecycle.CreateInput {
	in := lifecycle.CreateInput{
		Type:        b.Type,
		Description: b.Description,
		Urgency:     b.Urgency,
		Location:    b.Location,
		RequestedBy: b.RequestedBy,
	}
	if b.OwnerID != nil {
		in.OwnerID = canonicalUUID(*b.OwnerID)
	}
	return in
}

// AssignOwnerBody is the POST /requests/:id/assign payload.
type AssignOwnerBody struct {
	OwnerID string `json:"ownerId"`
}

// Validate requires a UUID owner id.
func (b AssignOwnerBody) Validate() error {
	if !isUUID(b.OwnerID) {
		return apperrors.NewValidationError("request payload is invalid", []apperrors.FieldIssue{
			{Field: "ownerId", Message: "must be a UUID"},
		})
	}
	return nil
}

// ChangeStatusBody is the POST /requests/:id/status payload.
type ChangeStatusBody struct {
	Status domain.RequestStatus `json:"status"`
}

// Validate requires a status; whether the move is legal is the engine's call.
func (b ChangeStatusBody) Validate() error {
	if strings.TrimSpace(string(b.Status)) == "" {
		return apperrors.NewValidationError("request payload is invalid", []apperrors.FieldIssue{
			{Field: "status", Message: "required"},
		})
	}
	return nil
}

// RequestResponse is a request with its owner summary.
type RequestResponse struct {
	ID          string               `json:"id"`
	Type        domain.RequestType   `json:"type"`
	Description string               `json:"description"`
	Urgency     domain.Urgency       `json:"urgency"`
	Location    string               `json:"location"`
	RequestedBy string               `json:"requestedBy"`
	Status      domain.RequestStatus `json:"status"`
	OwnerID     string               `json:"ownerId"`
	Owner       domain.UserRef       `json:"owner"`
	CreatedByID string               `json:"createdById"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	ClosedAt    *time.Time           `json:"closedAt"`
}

// RequestEventResponse is one audit entry with its performer summary.
type RequestEventResponse struct {
	ID            string                  `json:"id"`
	RequestID     string                  `json:"requestId"`
	Type          domain.RequestEventType `json:"type"`
	FromValue     *string                 `json:"fromValue"`
	ToValue       *string                 `json:"toValue"`
	PerformedByID string                  `json:"performedById"`
	PerformedBy   domain.UserRef          `json:"performedBy"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// RequestHistoryResponse is a request with its full audit trail.
type RequestHistoryResponse struct {
	RequestResponse
	CreatedBy domain.UserRef         `json:"createdBy"`
	Events    []RequestEventResponse `json:"events"`
}

// NewRequestResponse maps a request view.
func NewRequestResponse(v domain.RequestView) RequestResponse {
	owner := v.Owner
	if owner.ID == "" {
		owner.ID = v.OwnerID
	}
	return RequestResponse{
		ID:          v.ID,
		Type:        v.Type,
		Description: v.Description,
		Urgency:     v.Urgency,
		Location:    v.Location,
		RequestedBy: v.RequestedBy,
		Status:      v.Status,
		OwnerID:     v.OwnerID,
		Owner:       owner,
		CreatedByID: v.CreatedByID,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		ClosedAt:    v.ClosedAt,
	}
}

// NewRequestList maps board rows.
func NewRequestList(views []domain.RequestView) []RequestResponse {
	out := make([]RequestResponse, 0, len(views))
	for _, v := range views {
		out = append(out, NewRequestResponse(v))
	}
	return out
}

// NewRequestHistoryResponse maps a request history.
func NewRequestHistoryResponse(h domain.RequestHistory) RequestHistoryResponse {
	resp := RequestHistoryResponse{
		RequestResponse: NewRequestResponse(domain.RequestView{Request: h.Request, Owner: h.Owner}),
		CreatedBy:       h.CreatedBy,
		Events:          make([]RequestEventResponse, 0, len(h.Events)),
	}
	if resp.CreatedBy.ID == "" {
		resp.CreatedBy.ID = h.Request.CreatedByID
	}
	for _, ev := range h.Events {
		performer := h.Performers[ev.PerformedByID]
		if performer.ID == "" {
			performer.ID = ev.PerformedByID
		}
		resp.Events = append(resp.Events, RequestEventResponse{
			ID:            ev.ID,
			RequestID:     ev.RequestID,
			Type:          ev.Type,
			FromValue:     ev.FromValue,
			ToValue:       ev.ToValue,
			PerformedByID: ev.PerformedByID,
			PerformedBy:   performer,
			CreatedAt:     ev.CreatedAt,
		})
	}
	return resp
}

// canonicalUUID returns the lower-case hyphenated spelling of s, or s trimmed when
// it is not a UUID.
func canonicalUUID(s string) string {
	s = strings.TrimSpace(s)
	if parsed, err := uuid.Parse(s); err == nil {
		return parsed.String()
	}
	return s
}

func isUUID(s string) bool {
	_, err := uuid.Parse(strings.TrimSpace(s))
	return err == nil
}
